package extract

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"bankrecon/internal/config"
	"bankrecon/internal/core"
)

const (
	// lineBucket groups words whose tops round to the same multiple.
	lineBucket = 3.0
	// maxNeighborDistance bounds how far an orphan description line may be
	// from the transaction it is attached to.
	maxNeighborDistance = 50.0
)

// Word is one word on a page. Coordinates are in points, Top measured from
// the top edge of the page.
type Word struct {
	Text string
	X0   float64
	X1   float64
	Top  float64
}

// Detect picks the format whose marker appears among the first page's words,
// falling back to the default format.
func Detect(banks config.Banks, firstPage []Word) (config.BankFormat, bool) {
	present := make(map[string]struct{}, len(firstPage))
	for _, w := range firstPage {
		present[w.Text] = struct{}{}
	}
	for _, f := range banks {
		for _, marker := range f.Detection.TextPresent {
			if _, ok := present[marker]; ok {
				return f, true
			}
		}
	}
	return banks.Default()
}

type line struct {
	top   float64
	words []Word
}

// groupLines buckets words into visual lines ordered top to bottom, each
// sorted left to right.
func groupLines(words []Word) []line {
	byTop := map[float64][]Word{}
	for _, w := range words {
		key := math.RoundToEven(w.Top/lineBucket) * lineBucket
		byTop[key] = append(byTop[key], w)
	}
	tops := make([]float64, 0, len(byTop))
	for t := range byTop {
		tops = append(tops, t)
	}
	sort.Float64s(tops)
	out := make([]line, 0, len(tops))
	for _, t := range tops {
		ws := byTop[t]
		sort.SliceStable(ws, func(i, j int) bool { return ws[i].X0 < ws[j].X0 })
		out = append(out, line{top: t, words: ws})
	}
	return out
}

func (l line) text() string {
	parts := make([]string, len(l.words))
	for i, w := range l.words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

func excluded(text string, exclusions []string) bool {
	lower := strings.ToLower(text)
	for _, e := range exclusions {
		if strings.Contains(lower, strings.ToLower(e)) {
			return true
		}
	}
	return false
}

// columnFor returns the column containing the word's midpoint, else the
// first column containing its left edge.
func columnFor(cols []config.Column, w Word) (config.Column, bool) {
	mid := (w.X0 + w.X1) / 2
	for _, c := range cols {
		if c.XMin <= mid && mid < c.XMax {
			return c, true
		}
	}
	for _, c := range cols {
		if c.XMin <= w.X0 && w.X0 < c.XMax {
			return c, true
		}
	}
	return config.Column{}, false
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func looksLikeDate(s string) bool {
	return len(s) >= 6 && strings.ContainsAny(s, "./-") && hasDigit(s)
}

// cleanAmount drops thousands separators; blank becomes "0.00".
func cleanAmount(s string) string {
	if s == "" {
		return core.ZeroAmount
	}
	return strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
}

// normalizeDate converts statement dates toward DD/MM/YYYY.
func normalizeDate(s, layout string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if layout == "DD/MM/YY" && strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) == 3 && len(parts[2]) == 2 {
			parts[2] = "20" + parts[2]
			return strings.Join(parts, "/")
		}
	}
	if strings.Contains(s, ".") {
		return strings.ReplaceAll(s, ".", "/")
	}
	return s
}

type row struct {
	top     float64
	fields  map[string]string
	desc    string
	hasDate bool
	extra   []descLine
}

type descLine struct {
	top  float64
	text string
}

func slotLine(l line, f config.BankFormat) row {
	r := row{top: l.top, fields: make(map[string]string, len(f.Columns))}
	var descParts []string
	for _, w := range l.words {
		col, ok := columnFor(f.Columns, w)
		if !ok {
			continue
		}
		switch {
		case col.Type == config.ColumnDate:
			if looksLikeDate(w.Text) {
				r.fields[col.Name] = w.Text
				r.hasDate = true
			}
		case col.Type == config.ColumnAmount:
			if hasDigit(w.Text) {
				r.fields[col.Name] = w.Text
			}
		case col.Name == "Description":
			descParts = append(descParts, w.Text)
		default:
			if prev := r.fields[col.Name]; prev != "" {
				r.fields[col.Name] = prev + " " + w.Text
			} else {
				r.fields[col.Name] = w.Text
			}
		}
	}
	r.desc = strings.Join(descParts, " ")
	return r
}

func (r row) transaction(f config.BankFormat) core.RawTransaction {
	vals := make(map[string]string, len(f.Columns))
	for _, c := range f.Columns {
		v := r.fields[c.Name]
		switch c.Type {
		case config.ColumnAmount:
			v = cleanAmount(v)
		case config.ColumnDate:
			v = normalizeDate(v, f.DateFormat)
		}
		vals[c.Name] = v
	}
	return core.RawTransaction{
		SerialNo:    vals["S No"],
		Date:        vals["Date"],
		ChequeNo:    vals["Cheque No"],
		Description: r.desc,
		Withdrawal:  vals["Withdrawal"],
		Deposit:     vals["Deposit"],
		Balance:     vals["Balance"],
	}
}

// ParsePage turns the words of one page into transactions. A line with a
// valid date starts a transaction; other lines extend descriptions
// according to the format's multiline strategy.
func ParsePage(words []Word, f config.BankFormat) []core.RawTransaction {
	var (
		mains   []*row
		orphans []descLine
	)
	for _, l := range groupLines(words) {
		if excluded(l.text(), f.Exclusions) {
			continue
		}
		r := slotLine(l, f)
		switch {
		case r.hasDate:
			mains = append(mains, &r)
		case f.MultilineStrategy == config.StrategyNearestNeighbor:
			if r.desc != "" {
				orphans = append(orphans, descLine{top: r.top, text: r.desc})
			}
		default:
			if len(mains) > 0 && r.desc != "" {
				prev := mains[len(mains)-1]
				prev.desc += " " + r.desc
			}
		}
	}

	if f.MultilineStrategy == config.StrategyNearestNeighbor {
		attachOrphans(mains, orphans)
	}

	out := make([]core.RawTransaction, 0, len(mains))
	for _, r := range mains {
		out = append(out, r.transaction(f))
	}
	return out
}

func attachOrphans(mains []*row, orphans []descLine) {
	if len(mains) == 0 {
		return
	}
	for _, o := range orphans {
		best := mains[0]
		for _, m := range mains[1:] {
			if math.Abs(m.top-o.top) < math.Abs(best.top-o.top) {
				best = m
			}
		}
		if math.Abs(best.top-o.top) > maxNeighborDistance {
			continue
		}
		best.extra = append(best.extra, o)
	}
	for _, m := range mains {
		if len(m.extra) == 0 {
			continue
		}
		parts := make([]descLine, 0, len(m.extra)+1)
		if m.desc != "" {
			parts = append(parts, descLine{top: m.top, text: m.desc})
		}
		parts = append(parts, m.extra...)
		sort.SliceStable(parts, func(i, j int) bool { return parts[i].top < parts[j].top })
		texts := make([]string, len(parts))
		for i, p := range parts {
			texts[i] = p.text
		}
		m.desc = strings.Join(texts, " ")
	}
}
