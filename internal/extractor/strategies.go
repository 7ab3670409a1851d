package extractor

import "github.com/eoinhurrell/citelink/internal/linkmodel"

// Decision is what a strategy returns for one link: eligible or not, with
// a human-readable reason either way. A strategy that has no opinion
// returns (Decision{}, false) so the chain falls through to the next one.
type Decision struct {
	Eligible bool
	Reason   string
}

// Flags are the extraction-affecting CLI options the core recognizes.
type Flags struct {
	FullFiles bool
}

// Strategy decides extraction eligibility for one enriched link. Order in
// the chain is load-bearing: force-extract must override every later gate.
type Strategy interface {
	Decide(link *linkmodel.Link, flags Flags) (Decision, bool)
}

// DefaultChain is the eligibility chain in precedence order.
var DefaultChain = []Strategy{
	forceMarkerStrategy{},
	suppressMarkerStrategy{},
	sectionLinkStrategy{},
	blockLinkStrategy{},
	fullFileStrategy{},
}

// Evaluate runs link through chain in order, returning the first
// non-delegating decision.
func Evaluate(chain []Strategy, link *linkmodel.Link, flags Flags) Decision {
	for _, s := range chain {
		if d, ok := s.Decide(link, flags); ok {
			return d
		}
	}
	return Decision{Eligible: false, Reason: "no strategy claimed this link"}
}

type forceMarkerStrategy struct{}

func (forceMarkerStrategy) Decide(link *linkmodel.Link, _ Flags) (Decision, bool) {
	if link.ExtractionMarker != nil && link.ExtractionMarker.InnerText == "force-extract" {
		return Decision{Eligible: true, Reason: "force-extract overrides defaults"}, true
	}
	return Decision{}, false
}

// suppressMarkerStrategy implements the spec's placeholder: a no-extract
// marker short-circuits eligibility regardless of anchor type.
type suppressMarkerStrategy struct{}

func (suppressMarkerStrategy) Decide(link *linkmodel.Link, _ Flags) (Decision, bool) {
	if link.ExtractionMarker != nil && link.ExtractionMarker.InnerText == "no-extract" {
		return Decision{Eligible: false, Reason: "no-extract marker"}, true
	}
	return Decision{}, false
}

type sectionLinkStrategy struct{}

func (sectionLinkStrategy) Decide(link *linkmodel.Link, _ Flags) (Decision, bool) {
	if link.AnchorType == linkmodel.AnchorTypeHeader && link.Scope == linkmodel.ScopeCrossDocument {
		return Decision{Eligible: true, Reason: "section link"}, true
	}
	return Decision{}, false
}

type blockLinkStrategy struct{}

func (blockLinkStrategy) Decide(link *linkmodel.Link, _ Flags) (Decision, bool) {
	if link.AnchorType == linkmodel.AnchorTypeBlock {
		return Decision{Eligible: true, Reason: "block reference"}, true
	}
	return Decision{}, false
}

type fullFileStrategy struct{}

func (fullFileStrategy) Decide(link *linkmodel.Link, flags Flags) (Decision, bool) {
	if link.AnchorType != "" {
		return Decision{}, false
	}
	if flags.FullFiles {
		return Decision{Eligible: true, Reason: "full-file extraction"}, true
	}
	return Decision{Eligible: false, Reason: "full-file extraction requires --full-files flag"}, true
}
