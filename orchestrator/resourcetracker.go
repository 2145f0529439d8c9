package orchestrator

import (
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/webauditor/model"
)

// resourceTracker partitions response bytes by resource class for the
// content-weight analyzer. Its resource-type classification is its own
// (the browser pool has none) and is used to measure, not to block:
// unlike the teacher's hijack router (which drops
// blocked resource types outright), every request is allowed through so
// the weight figures reflect what a real visitor downloads — except when
// the content-weight analyzer is disabled for this run, in which case
// image/font/media requests are blocked outright the way the teacher's
// router does, trading measurement accuracy nobody asked for back for
// faster page loads.
type resourceTracker struct {
	mu     sync.Mutex
	bytes  model.ResourceBytes
	router *rod.HijackRouter
}

var trackerResourceTypes = map[proto.NetworkResourceType]func(*model.ResourceBytes, int64){
	proto.NetworkResourceTypeDocument:   func(b *model.ResourceBytes, n int64) { b.HTML += n },
	proto.NetworkResourceTypeStylesheet: func(b *model.ResourceBytes, n int64) { b.CSS += n },
	proto.NetworkResourceTypeScript:     func(b *model.ResourceBytes, n int64) { b.JavaScript += n },
	proto.NetworkResourceTypeImage:      func(b *model.ResourceBytes, n int64) { b.Images += n },
	proto.NetworkResourceTypeFont:       func(b *model.ResourceBytes, n int64) { b.Fonts += n },
}

func newResourceTracker(page *rod.Page, measureOnly bool) *resourceTracker {
	t := &resourceTracker{}
	router := page.HijackRequests()
	blocked := map[proto.NetworkResourceType]bool{
		proto.NetworkResourceTypeImage: true,
		proto.NetworkResourceTypeFont:  true,
		proto.NetworkResourceTypeMedia: true,
	}

	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if !measureOnly && blocked[ctx.Request.Type()] {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}

		// LoadResponse actually performs the request through rod's own
		// client and populates ctx.Response, which is the only way to see
		// the response body for byte accounting; ContinueRequest alone
		// hands the request back to the browser without surfacing bytes.
		if err := ctx.LoadResponse(nil, true); err != nil {
			return
		}

		size := int64(len(ctx.Response.Body()))
		t.mu.Lock()
		if add, ok := trackerResourceTypes[ctx.Request.Type()]; ok {
			add(&t.bytes, size)
		} else {
			t.bytes.Other += size
		}
		t.mu.Unlock()
	})

	go router.Run()
	t.router = router
	return t
}

func (t *resourceTracker) snapshot() model.ResourceBytes {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bytes
}

func (t *resourceTracker) stop() {
	_ = t.router.Stop()
}
