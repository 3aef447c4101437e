package search

import (
	"path"
	"regexp"
	"strings"
)

// Proximity scoring: entries often mention file paths in backticks; when the
// caller supplies the files it is currently working on, nearness between the
// two sets is an orthogonal relevance signal.

var backtickRegex = regexp.MustCompile("`([^`]+)`")

// ExtractEvidencePaths scans the content preview, then the source field, for
// backtick-delimited tokens containing a path separator. Duplicates keep
// first-seen order and the result is capped at MaxEvidencePaths. The entry's
// own memory-file path is deliberately not evidence: every entry would
// otherwise score against its own storage location.
func ExtractEvidencePaths(preview, source string) []string {
	seen := make(map[string]struct{})
	var paths []string

	for _, text := range []string{preview, source} {
		if text == "" {
			continue
		}
		for _, m := range backtickRegex.FindAllStringSubmatch(text, -1) {
			tok := strings.TrimSpace(m[1])
			if tok == "" || !strings.ContainsAny(tok, `/\`) {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			paths = append(paths, tok)
			if len(paths) >= MaxEvidencePaths {
				return paths
			}
		}
	}
	return paths
}

// FileProximity scores how close two file paths are. Always in [0,1] and
// symmetric. Exact match is 1.0; same directory with a different leaf is
// 0.8; otherwise the shared leading segment prefix scales into [0,0.8);
// fully disjoint paths are 0.0.
func FileProximity(a, b string) float64 {
	na := normalizePath(a)
	nb := normalizePath(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}

	segsA := strings.Split(na, "/")
	segsB := strings.Split(nb, "/")

	dirA := segsA[:len(segsA)-1]
	dirB := segsB[:len(segsB)-1]
	if len(dirA) > 0 && len(dirA) == len(dirB) && equalSegments(dirA, dirB) {
		return 0.8
	}

	common := 0
	for common < len(segsA) && common < len(segsB) && segsA[common] == segsB[common] {
		common++
	}
	if common == 0 {
		return 0.0
	}

	denom := len(segsA)
	if len(segsB) > denom {
		denom = len(segsB)
	}
	return 0.8 * float64(common) / float64(denom)
}

// ScoreProximity returns the best alignment between an entry's evidence
// paths and the caller's context files: the maximum pairwise proximity.
// Returns 0.0 when either side is empty.
func ScoreProximity(preview, source string, contextFiles []string) float64 {
	if len(contextFiles) == 0 {
		return 0.0
	}
	evidence := ExtractEvidencePaths(preview, source)
	if len(evidence) == 0 {
		return 0.0
	}

	var best float64
	for _, ev := range evidence {
		for _, cf := range contextFiles {
			if score := FileProximity(ev, cf); score > best {
				best = score
			}
		}
	}
	return best
}

// normalizePath resolves "..", collapses repeated separators, and strips a
// leading "./" so equivalent spellings compare equal.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	if p == "." || p == "/" {
		return ""
	}
	return strings.TrimPrefix(p, "/")
}

func equalSegments(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
