package analyzer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/use-agent/webauditor/model"
)

// SEO parses the rendered document with goquery for the structural signals
// (title/description/headings/links/social tags) and runs the Readability
// algorithm separately for word count and a readability score, following
// the same "degrade to raw content on extraction failure" contract the
// content-cleaning pipeline this is grounded on uses.
type SEO struct {
	// DuplicateSignal, LLMSignal are optional extended-signal providers; nil
	// means the corresponding ExtendedSEOSignals field is left unset.
	DuplicateSignal func(url, textContent string) (dupOf string, similarity int, ok bool)
	LLMSignal       func(ctx context.Context, textContent string) (topics []string, eatScore int, eatSummary string, err error)
}

func (s *SEO) Name() Id             { return IDSEO }
func (s *SEO) DefaultTimeoutMs() int { return 15_000 }

func (s *SEO) Run(ctx context.Context, pc PageContext) (Output, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pc.DocumentHTML))
	if err != nil {
		return Output{}, fmt.Errorf("seo: parse document: %w", err)
	}

	title := doc.Find("title").First().Text()
	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	keywords, _ := doc.Find(`meta[name="keywords"]`).First().Attr("content")

	headingCounts := map[string]int{}
	for i := 1; i <= 6; i++ {
		tag := fmt.Sprintf("h%d", i)
		headingCounts[tag] = doc.Find(tag).Length()
	}

	parsedBase, _ := url.Parse(pc.URL)
	var links model.LinkCounts
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}
		resolved, err := url.Parse(href)
		if err != nil {
			return
		}
		if parsedBase != nil && resolved.Host != "" && resolved.Host != parsedBase.Host {
			links.External++
		} else {
			links.Internal++
		}
	})

	social := model.SocialTags{
		OpenGraphPresent: doc.Find(`meta[property^="og:"]`).Length() > 0,
		TwitterPresent:   doc.Find(`meta[name^="twitter:"]`).Length() > 0,
	}

	wordCount, readabilityScore := articleStats(pc.DocumentHTML, pc.URL)

	section := &model.SEOSection{
		Title:            metaTagFor(title),
		Description:      metaTagFor(description),
		Keywords:         keywords,
		HeadingCounts:    headingCounts,
		ReadabilityScore: readabilityScore,
		WordCount:        wordCount,
		Links:            links,
		Social:           social,
	}

	section.Extended = s.extendedSignals(ctx, pc, doc)
	section.Score = scoreSEO(section)

	return Output{Section: section}, nil
}

func metaTagFor(content string) model.MetaTag {
	content = strings.TrimSpace(content)
	return model.MetaTag{Present: content != "", Length: len(content), Content: content}
}

// articleStats runs the Readability algorithm to approximate the reader's
// actual word count, falling back to raw text if extraction fails or
// yields too little content to trust.
func articleStats(html, sourceURL string) (wordCount, readabilityScore int) {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return 0, 0
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	text := ""
	if err == nil && len(strings.TrimSpace(article.TextContent)) >= 50 {
		text = article.TextContent
	} else {
		// Fall back to a bare-bones word count over the raw document; an
		// imperfect count beats reporting zero words for a page readability
		// simply couldn't parse.
		doc, derr := goquery.NewDocumentFromReader(strings.NewReader(html))
		if derr == nil {
			text = doc.Find("body").Text()
		}
	}
	words := strings.Fields(text)
	wordCount = len(words)
	readabilityScore = fleschApprox(text, wordCount)
	return wordCount, readabilityScore
}

// fleschApprox is a coarse Flesch Reading Ease approximation (sentence and
// syllable counts are heuristic, not dictionary-backed) scaled to 0..100.
func fleschApprox(text string, wordCount int) int {
	if wordCount == 0 {
		return 0
	}
	sentences := strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '!' || r == '?' })
	numSentences := len(sentences)
	if numSentences == 0 {
		numSentences = 1
	}
	syllables := 0
	for _, w := range strings.Fields(text) {
		syllables += countSyllablesApprox(w)
	}
	score := 206.835 - 1.015*(float64(wordCount)/float64(numSentences)) - 84.6*(float64(syllables)/float64(wordCount))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score)
}

func countSyllablesApprox(word string) int {
	word = strings.ToLower(word)
	vowels := "aeiouy"
	count := 0
	prevWasVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune(vowels, r)
		if isVowel && !prevWasVowel {
			count++
		}
		prevWasVowel = isVowel
	}
	if count == 0 {
		count = 1
	}
	return count
}

func (s *SEO) extendedSignals(ctx context.Context, pc PageContext, doc *goquery.Document) *model.ExtendedSEOSignals {
	if s.DuplicateSignal == nil && s.LLMSignal == nil {
		return nil
	}
	ext := &model.ExtendedSEOSignals{}
	text := doc.Find("body").Text()

	if s.DuplicateSignal != nil {
		if dupOf, similarity, ok := s.DuplicateSignal(pc.URL, text); ok {
			ext.DuplicateOf = dupOf
			ext.DuplicateSimilarity = similarity
		}
	}
	if s.LLMSignal != nil {
		if topics, eatScore, eatSummary, err := s.LLMSignal(ctx, text); err == nil {
			ext.SemanticTopics = topics
			ext.VoiceEATScore = eatScore
			ext.VoiceEATSummary = eatSummary
		}
	}
	return ext
}

func scoreSEO(s *model.SEOSection) int {
	score := 100
	if !s.Title.Present {
		score -= 20
	} else if s.Title.Length < 10 || s.Title.Length > 60 {
		score -= 8
	}
	if !s.Description.Present {
		score -= 15
	} else if s.Description.Length < 50 || s.Description.Length > 160 {
		score -= 6
	}
	if s.HeadingCounts["h1"] == 0 {
		score -= 15
	} else if s.HeadingCounts["h1"] > 1 {
		score -= 5
	}
	if s.WordCount < 300 {
		score -= 10
	}
	if !s.Social.OpenGraphPresent {
		score -= 5
	}
	if s.Extended != nil && s.Extended.DuplicateOf != "" && s.Extended.DuplicateSimilarity >= 90 {
		score -= 15
	}
	if score < 0 {
		score = 0
	}
	return score
}
