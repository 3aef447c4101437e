package search

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProximity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"exact match", "internal/auth/token.go", "internal/auth/token.go", 1.0},
		{"exact after normalization", "./internal/auth/token.go", "internal/auth/token.go", 1.0},
		{"backslashes normalized", `internal\auth\token.go`, "internal/auth/token.go", 1.0},
		{"same directory", "internal/auth/token.go", "internal/auth/session.go", 0.8},
		{"shared prefix", "internal/auth/token.go", "internal/store/db.go", 0.8 * 1.0 / 3.0},
		{"disjoint", "internal/auth/token.go", "cmd/server/main.go", 0.0},
		{"empty side", "", "internal/auth/token.go", 0.0},
		{"both empty", "", "", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FileProximity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.InDelta(t, got, FileProximity(tt.b, tt.a), 1e-9, "proximity is symmetric")
		})
	}
}

func TestFileProximityRange(t *testing.T) {
	paths := []string{
		"a/b/c.go", "a/b/d.go", "a/x/c.go", "z.go", "a/b/c/d/e/f.go", "",
	}
	for _, a := range paths {
		for _, b := range paths {
			got := FileProximity(a, b)
			assert.GreaterOrEqual(t, got, 0.0, "%q vs %q", a, b)
			assert.LessOrEqual(t, got, 1.0, "%q vs %q", a, b)
		}
	}
}

func TestExtractEvidencePaths(t *testing.T) {
	preview := "Fixed the race in `internal/auth/token.go` and `internal/auth/session.go`"
	source := "session notes, see `docs/design.md` and `not-a-path`"

	paths := ExtractEvidencePaths(preview, source)
	assert.Equal(t, []string{
		"internal/auth/token.go",
		"internal/auth/session.go",
		"docs/design.md",
	}, paths)
}

func TestExtractEvidencePathsDeduplicates(t *testing.T) {
	text := "see `a/b.go`, then `a/b.go` again, then `c/d.go`"
	paths := ExtractEvidencePaths(text, text)
	assert.Equal(t, []string{"a/b.go", "c/d.go"}, paths)
}

func TestExtractEvidencePathsCapped(t *testing.T) {
	var b strings.Builder
	for i := 0; i < MaxEvidencePaths+5; i++ {
		fmt.Fprintf(&b, "`pkg%d/file.go` ", i)
	}
	paths := ExtractEvidencePaths(b.String(), "")
	assert.Len(t, paths, MaxEvidencePaths)
}

func TestExtractEvidencePathsRequiresSeparator(t *testing.T) {
	paths := ExtractEvidencePaths("mentions `main.go` and `SomeFunc` only", "")
	assert.Empty(t, paths)
}

func TestScoreProximity(t *testing.T) {
	preview := "touched `internal/auth/token.go` during the refactor"

	score := ScoreProximity(preview, "", []string{"internal/auth/token.go"})
	assert.InDelta(t, 1.0, score, 1e-9)

	score = ScoreProximity(preview, "", []string{"internal/auth/session.go"})
	assert.InDelta(t, 0.8, score, 1e-9)

	score = ScoreProximity(preview, "", []string{"cmd/server/main.go"})
	assert.Zero(t, score)
}

func TestScoreProximityTakesBestPair(t *testing.T) {
	preview := "see `internal/auth/token.go` and `docs/notes.md`"
	contextFiles := []string{"cmd/server/main.go", "internal/auth/token.go"}

	score := ScoreProximity(preview, "", contextFiles)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScoreProximityEmptySides(t *testing.T) {
	assert.Zero(t, ScoreProximity("see `a/b.go`", "", nil))
	assert.Zero(t, ScoreProximity("no paths here", "", []string{"a/b.go"}))
}

func TestScoreProximitySourceIsSecondaryEvidence(t *testing.T) {
	source := "recorded from `internal/auth/token.go`"

	score := ScoreProximity("preview without paths", source, []string{"internal/auth/token.go"})
	require.InDelta(t, 1.0, score, 1e-9)
}
