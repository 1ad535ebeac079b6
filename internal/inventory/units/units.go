package units

import (
	"math"
	"regexp"
	"strings"

	"kardex-service/internal/inventory/model"
)

type presentationRule struct {
	Name string
	re   *regexp.Regexp
}

// scanned in order; the first rule found in the description wins
var presentationRules = []presentationRule{
	{"BOX", regexp.MustCompile(`(?i)\b(box|boxes|bx|caja|cajas)\b`)},
	{"DOZEN", regexp.MustCompile(`(?i)\b(dozen|dozens|doz|dz|docena|docenas)\b`)},
	{"BAG", regexp.MustCompile(`(?i)\b(bag|bags|funda|fundas)\b`)},
	{"BOTTLE", regexp.MustCompile(`(?i)\b(bottle|bottles|btl|botella|botellas)\b`)},
	{"SACK", regexp.MustCompile(`(?i)\b(sack|sacks|saco|sacos|quintal)\b`)},
	{"PACKAGE", regexp.MustCompile(`(?i)\b(package|packages|pack|packs|pkg|paquete|paquetes)\b`)},
}

// DetectPresentation finds a packaging word in description, or baseUnit.
func DetectPresentation(description, baseUnit string) string {
	for _, r := range presentationRules {
		if r.re.MatchString(description) {
			return r.Name
		}
	}
	if baseUnit == "" {
		return model.DefaultBaseUnit
	}
	return baseUnit
}

// Canonical maps a stated unit word to its presentation name.
func Canonical(unit string) string {
	u := strings.TrimSpace(unit)
	if u == "" {
		return ""
	}
	for _, r := range presentationRules {
		if r.re.MatchString(u) {
			return r.Name
		}
	}
	return strings.ToUpper(u)
}

// EnsureBase makes sure the base unit is present at factor 1.
func EnsureBase(p *model.Product) {
	if p.BaseUnit == "" {
		p.BaseUnit = model.DefaultBaseUnit
	}
	for i := range p.Presentations {
		if strings.EqualFold(p.Presentations[i].Name, p.BaseUnit) {
			p.Presentations[i].Factor = 1
			return
		}
	}
	p.Presentations = append([]model.Presentation{{Name: p.BaseUnit, Factor: 1}}, p.Presentations...)
}

// ResolveFactor looks up name on p. An unknown name is queued on
// p.PendingPresentations and resolved as factor 1 so the caller never blocks
// on it.
func ResolveFactor(p *model.Product, name string) (factor float64, pending bool) {
	if name == "" || strings.EqualFold(name, p.BaseUnit) {
		return 1, false
	}
	for _, pr := range p.Presentations {
		if strings.EqualFold(pr.Name, name) && pr.Factor > 0 {
			return pr.Factor, false
		}
	}
	addPending(p, name)
	return 1, true
}

// LookupFactor is ResolveFactor without recording anything.
func LookupFactor(p *model.Product, name string) (factor float64, known bool) {
	if name == "" || strings.EqualFold(name, p.BaseUnit) {
		return 1, true
	}
	for _, pr := range p.Presentations {
		if strings.EqualFold(pr.Name, name) && pr.Factor > 0 {
			return pr.Factor, true
		}
	}
	return 1, false
}

// LinePresentation returns the presentation a document line is expressed in:
// the stated unit when there is one, otherwise the one detected in the
// description.
func LinePresentation(unit, description, baseUnit string) string {
	if c := Canonical(unit); c != "" {
		return c
	}
	return DetectPresentation(description, baseUnit)
}

// SetFactor upserts (name, factor) and clears name from the pending list.
// Invalid factors leave p untouched and return false.
func SetFactor(p *model.Product, name string, factor float64) bool {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" || !valid(factor) {
		return false
	}
	if strings.EqualFold(name, p.BaseUnit) {
		return factor == 1
	}
	found := false
	for i := range p.Presentations {
		if strings.EqualFold(p.Presentations[i].Name, name) {
			p.Presentations[i].Factor = factor
			found = true
			break
		}
	}
	if !found {
		p.Presentations = append(p.Presentations, model.Presentation{Name: name, Factor: factor})
	}
	removePending(p, name)
	return true
}

// SetBaseUnit renames the base unit. The old base presentation is replaced.
func SetBaseUnit(p *model.Product, unit string) bool {
	unit = strings.ToUpper(strings.TrimSpace(unit))
	if unit == "" {
		return false
	}
	out := p.Presentations[:0]
	for _, pr := range p.Presentations {
		if strings.EqualFold(pr.Name, p.BaseUnit) || strings.EqualFold(pr.Name, unit) {
			continue
		}
		out = append(out, pr)
	}
	p.Presentations = out
	p.BaseUnit = unit
	removePending(p, unit)
	EnsureBase(p)
	return true
}

// BaseUnitCost converts a per-presentation price into a per-base-unit cost.
func BaseUnitCost(price, factor float64) float64 {
	if factor > 0 {
		return price / factor
	}
	return price
}

func valid(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

func addPending(p *model.Product, name string) {
	for _, n := range p.PendingPresentations {
		if strings.EqualFold(n, name) {
			return
		}
	}
	p.PendingPresentations = append(p.PendingPresentations, strings.ToUpper(name))
}

func removePending(p *model.Product, name string) {
	out := p.PendingPresentations[:0]
	for _, n := range p.PendingPresentations {
		if !strings.EqualFold(n, name) {
			out = append(out, n)
		}
	}
	p.PendingPresentations = out
}
