package volume

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"unicode"

	"nodulemesh/pkg/config"
)

// Order returns paths arranged for stacking. "selection" keeps the given
// order, "lexical" sorts by file name and "natural" sorts by the last run
// of digits in the file name, so slice_2 comes before slice_10. The input
// slice is not modified.
func Order(paths []string, mode string) ([]string, error) {
	out := append([]string(nil), paths...)

	switch mode {
	case config.OrderSelection, "":
	case config.OrderLexical:
		sort.SliceStable(out, func(i, j int) bool {
			return filepath.Base(out[i]) < filepath.Base(out[j])
		})
	case config.OrderNatural:
		sort.SliceStable(out, func(i, j int) bool {
			ni, iok := extractNumber(out[i])
			nj, jok := extractNumber(out[j])
			if iok && jok && ni != nj {
				return ni < nj
			}
			if iok != jok {
				return iok
			}
			return filepath.Base(out[i]) < filepath.Base(out[j])
		})
	default:
		return nil, fmt.Errorf("unknown slice order %q", mode)
	}
	return out, nil
}

// extractNumber returns the last run of digits in the base file name
func extractNumber(filename string) (int, bool) {
	base := filepath.Base(filename)
	base = base[:len(base)-len(filepath.Ext(base))]

	end := -1
	for i := len(base) - 1; i >= 0; i-- {
		if unicode.IsDigit(rune(base[i])) {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return 0, false
	}
	start := end - 1
	for start > 0 && unicode.IsDigit(rune(base[start-1])) {
		start--
	}

	num, err := strconv.Atoi(base[start:end])
	if err != nil {
		return 0, false
	}
	return num, true
}
