package textsim

import "strings"

// DefaultCategory is returned when no table entry matches.
const DefaultCategory = "Miscellaneous"

type categoryRule struct {
	Name     string
	Keywords []string
}

// first match wins, keep the order
var categoryTable = []categoryRule{
	{"Electrical", []string{"electrical", "electric", "cable", "wire", "switch", "outlet", "socket", "breaker", "fuse", "conduit", "bulb", "lamp", "led"}},
	{"Plumbing", []string{"pipe", "pvc", "faucet", "valve", "elbow", "tee", "coupling", "drain", "toilet", "sink", "hose"}},
	{"Hardware", []string{"screw", "nail", "bolt", "nut", "washer", "hinge", "lock", "padlock", "bracket", "anchor"}},
	{"Tools", []string{"hammer", "drill", "saw", "wrench", "screwdriver", "pliers", "chisel", "tape", "level", "blade"}},
	{"Paint", []string{"paint", "primer", "varnish", "lacquer", "brush", "roller", "thinner", "enamel", "sealer"}},
	{"Construction", []string{"cement", "concrete", "sand", "brick", "block", "gravel", "rebar", "plaster", "mortar", "tile"}},
	{"Cleaning", []string{"detergent", "soap", "bleach", "disinfectant", "mop", "broom", "sponge", "cleaner"}},
	{"Food", []string{"rice", "sugar", "flour", "oil", "salt", "beans", "pasta", "bread", "milk", "coffee"}},
	{"Beverages", []string{"water", "juice", "soda", "beer", "wine", "drink", "tea"}},
	{"Stationery", []string{"paper", "pen", "pencil", "notebook", "folder", "marker", "stapler", "envelope"}},
	{"Electronics", []string{"battery", "charger", "usb", "hdmi", "speaker", "headphones", "phone", "adapter"}},
	{"Automotive", []string{"tire", "motor", "engine", "filter", "brake", "spark", "lubricant", "coolant"}},
}

// GuessCategory classifies a description using the keyword table. An exact
// keyword hit anywhere in the table wins over partial overlaps.
func GuessCategory(text string) string {
	kw := KeywordSet(text)
	if len(kw) == 0 {
		return DefaultCategory
	}
	for _, rule := range categoryTable {
		for _, k := range rule.Keywords {
			if _, ok := kw[k]; ok {
				return rule.Name
			}
		}
	}
	for _, rule := range categoryTable {
		for _, k := range rule.Keywords {
			for w := range kw {
				if partialMatch(w, k) {
					return rule.Name
				}
			}
		}
	}
	return DefaultCategory
}

func partialMatch(word, keyword string) bool {
	if len([]rune(word)) < 4 || len([]rune(keyword)) < 4 {
		return false
	}
	return strings.HasPrefix(word, keyword) || strings.HasPrefix(keyword, word)
}
