package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"bankrecon/internal/config"
	"bankrecon/internal/core"
	"bankrecon/internal/log"
)

// defaultPageHeight is A4 in points, used when a page has no MediaBox.
const defaultPageHeight = 842.0

// ErrNoFormat is returned when no statement format is configured.
var ErrNoFormat = errors.New("no suitable format configuration found")

// Extractor turns statement PDFs into transactions using the configured
// bank layouts.
type Extractor struct {
	banks config.Banks
}

func New(banks config.Banks) *Extractor {
	return &Extractor{banks: banks}
}

// Extract reads a (possibly encrypted) PDF. A missing or wrong password
// yields core.ErrPasswordRequired.
func (e *Extractor) Extract(ctx context.Context, data []byte, password string) (core.Statement, error) {
	pages, err := ReadWords(ctx, data, password)
	if err != nil {
		return core.Statement{}, err
	}
	return e.ExtractPages(ctx, pages)
}

// ExtractPages runs format detection on the first page and parses every
// page with the selected layout.
func (e *Extractor) ExtractPages(ctx context.Context, pages [][]Word) (core.Statement, error) {
	format, ok := e.banks.Default()
	if len(pages) > 0 {
		if detected, found := Detect(e.banks, pages[0]); found {
			format, ok = detected, true
		}
	}
	if !ok {
		return core.Statement{}, ErrNoFormat
	}
	slog.DebugContext(ctx, "Statement format selected",
		log.FieldComponent, log.ComponentExtract, log.FieldBank, format.Name, "pages", len(pages))

	var txs []core.RawTransaction
	for _, words := range pages {
		if err := ctx.Err(); err != nil {
			return core.Statement{}, err
		}
		txs = append(txs, ParsePage(words, format)...)
	}
	return core.Statement{Bank: core.BankID(format.Name).Normalize(), Transactions: txs}, nil
}

// ReadWords opens the PDF and returns the words of every page.
func ReadWords(ctx context.Context, data []byte, password string) (pages [][]Word, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	r, err := openReader(data, password)
	if err != nil {
		return nil, err
	}
	n := r.NumPage()
	if n == 0 {
		return nil, errors.New("PDF has no pages")
	}
	pages = make([][]Word, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, pageWords(p.Content().Text, pageHeight(p)))
	}
	return pages, nil
}

func openReader(data []byte, password string) (*pdf.Reader, error) {
	tried := false
	pw := func() string {
		if tried {
			return ""
		}
		tried = true
		return password
	}
	r, err := pdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), pw)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, core.ErrPasswordRequired
		}
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return r, nil
}

func pageHeight(p pdf.Page) float64 {
	box := p.V.Key("MediaBox")
	if box.Kind() != pdf.Array || box.Len() < 4 {
		return defaultPageHeight
	}
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if h <= 0 {
		return defaultPageHeight
	}
	return h
}

// pageWords merges glyph runs into words. Glyphs on the same baseline join a
// word while the gap to the previous glyph stays below a fraction of the
// font size; whitespace always ends a word.
func pageWords(texts []pdf.Text, height float64) []Word {
	glyphs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			glyphs = append(glyphs, t)
		}
	}
	sort.SliceStable(glyphs, func(i, j int) bool {
		yi, yj := math.Round(glyphs[i].Y), math.Round(glyphs[j].Y)
		if yi != yj {
			return yi > yj
		}
		return glyphs[i].X < glyphs[j].X
	})

	var (
		out    []Word
		cur    strings.Builder
		word   Word
		last   pdf.Text
		inWord bool
	)
	flush := func() {
		if inWord && cur.Len() > 0 {
			word.Text = cur.String()
			out = append(out, word)
		}
		cur.Reset()
		inWord = false
	}
	for _, g := range glyphs {
		if strings.IndexFunc(g.S, func(r rune) bool { return !unicode.IsSpace(r) }) < 0 {
			flush()
			continue
		}
		if inWord {
			sameLine := math.Round(g.Y) == math.Round(last.Y)
			gap := g.X - (last.X + last.W)
			if !sameLine || gap > 0.2*math.Max(g.FontSize, 1) {
				flush()
			}
		}
		if !inWord {
			word = Word{X0: g.X, Top: height - g.Y - g.FontSize}
			inWord = true
		}
		cur.WriteString(g.S)
		word.X1 = g.X + g.W
		last = g
	}
	flush()
	return out
}
