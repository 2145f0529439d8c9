package analyzer

import (
	"testing"

	"github.com/use-agent/webauditor/model"
)

func TestScoreMobile_PerfectPageScoresMax(t *testing.T) {
	s := &model.MobileSection{
		ViewportPresent:     true,
		ContentFitsViewport: true,
		HorizontalOverflow:  false,
		TouchTargetsOKRatio: 1,
		SmallTextFraction:   0,
	}
	if got := scoreMobile(s); got != 100 {
		t.Errorf("scoreMobile = %d, want 100", got)
	}
}

func TestScoreMobile_MissingViewportPenalized(t *testing.T) {
	s := &model.MobileSection{ContentFitsViewport: true, TouchTargetsOKRatio: 1}
	if got := scoreMobile(s); got != 75 {
		t.Errorf("scoreMobile = %d, want 75", got)
	}
}

func TestScoreMobile_OverflowAndBadTouchTargetsCompound(t *testing.T) {
	s := &model.MobileSection{
		ViewportPresent:     true,
		ContentFitsViewport: false,
		HorizontalOverflow:  true,
		TouchTargetsOKRatio: 0,
		SmallTextFraction:   1,
	}
	got := scoreMobile(s)
	want := 100 - 15 - 15 - 25 - 20
	if got != want {
		t.Errorf("scoreMobile = %d, want %d", got, want)
	}
}

func TestScoreMobile_NeverGoesNegative(t *testing.T) {
	s := &model.MobileSection{
		ViewportPresent:     false,
		ContentFitsViewport: false,
		HorizontalOverflow:  true,
		TouchTargetsOKRatio: 0,
		SmallTextFraction:   1,
	}
	if got := scoreMobile(s); got < 0 {
		t.Errorf("scoreMobile = %d, must never be negative", got)
	}
}
