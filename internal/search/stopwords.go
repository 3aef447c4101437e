package search

// stopWords are common words carrying no search value. Used by the
// decomposition gate and the token fingerprint.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"may": {}, "might": {}, "must": {}, "shall": {},
	"and": {}, "but": {}, "or": {}, "nor": {}, "for": {},
	"yet": {}, "so": {}, "to": {}, "of": {}, "in": {},
	"on": {}, "at": {}, "by": {}, "with": {}, "from": {},
	"it": {}, "its": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "which": {}, "what": {}, "who": {}, "whom": {},
	"how": {}, "when": {}, "where": {}, "why": {},
}

// isStopWord reports whether the lowercased word is a stop word.
func isStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}
