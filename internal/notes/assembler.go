package notes

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Source is one stored file as seen by the assembler.
type Source struct {
	ID         string
	FileName   string
	Text       string
	UploadedAt time.Time
}

// Query identifies the notes to assemble. An empty FileName selects every
// file of the subject. Budget is the maximum number of characters (runes) of
// the result; zero or negative disables truncation.
type Query struct {
	OwnerID   string
	SubjectID string
	FileName  string
	Budget    int
}

// SourceFinder loads the files matching a query. Implementations must scope
// by owner and may return files in any order.
type SourceFinder interface {
	FindSources(ctx context.Context, ownerID, subjectID, fileName string) ([]Source, error)
}

// ContextCache stores assembled context text. Get reports the subject's
// current cache version alongside a lookup; Put must store under that version
// so an invalidation racing with the store read cannot be overwritten with
// stale text. An empty version disables Put.
//
// Implementations swallow their own failures: a miss and an error look the
// same to the assembler.
type ContextCache interface {
	Get(ctx context.Context, q Query) (text, version string, hit bool)
	Put(ctx context.Context, q Query, version, text string)
}

// Assembler builds the context text handed to the prompt builder.
// Cache is optional.
type Assembler struct {
	Finder SourceFinder
	Cache  ContextCache
}

// Assemble returns the joined, truncated notes for q. found is false when no
// file matches, which is not an error. Assemble never writes to the store.
func (a *Assembler) Assemble(ctx context.Context, q Query) (text string, found bool, err error) {
	ctx, span := otel.Tracer("notes/Assembler").Start(ctx, "Assemble",
		trace.WithAttributes(
			attribute.String("user.id", q.OwnerID),
			attribute.String("subject.id", q.SubjectID),
			attribute.String("file.name", q.FileName),
			attribute.Int("budget", q.Budget),
		),
	)
	defer span.End()

	var version string
	if a.Cache != nil {
		cached, v, hit := a.Cache.Get(ctx, q)
		if hit {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, true, nil
		}
		version = v
	}

	sources, err := a.Finder.FindSources(ctx, q.OwnerID, q.SubjectID, q.FileName)
	if err != nil {
		span.RecordError(err)
		return "", false, err
	}
	if len(sources) == 0 {
		return "", false, nil
	}

	text = JoinSources(sources, q.Budget)
	span.SetAttributes(
		attribute.Int("files", len(sources)),
		attribute.Int("chars", utf8.RuneCountInString(text)),
	)
	if a.Cache != nil && version != "" {
		a.Cache.Put(ctx, q, version, text)
	}
	return text, true, nil
}

// SourceHeader is the line that introduces each file's text.
func SourceHeader(fileName string) string {
	return "--- Source: " + fileName + " ---"
}

// JoinSources orders sources by upload time (ID breaks ties), renders one
// block per file as header, newline, text, joins the blocks with a blank line,
// and truncates the whole string to budget runes.
//
// The input slice is not modified.
func JoinSources(sources []Source, budget int) string {
	ordered := make([]Source, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].UploadedAt.Equal(ordered[j].UploadedAt) {
			return ordered[i].UploadedAt.Before(ordered[j].UploadedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	var b strings.Builder
	for i, s := range ordered {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(SourceHeader(s.FileName))
		b.WriteByte('\n')
		b.WriteString(s.Text)
	}
	return Truncate(b.String(), budget)
}

// Truncate returns the first budget runes of s. A budget <= 0 returns s as is.
func Truncate(s string, budget int) string {
	if budget <= 0 || len(s) <= budget {
		// len(s) counts bytes, which is never less than the rune count.
		return s
	}
	n := 0
	for i := range s {
		if n == budget {
			return s[:i]
		}
		n++
	}
	return s
}
