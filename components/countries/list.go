package countries

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

//go:embed data/countries.txt
var dataFS embed.FS

const defaultListPath = "data/countries.txt"

// Country is a single entry of the reference list.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag,omitempty"`
}

var (
	defaultOnce      sync.Once
	defaultCountries []Country
	defaultErr       error
)

// DefaultCountries returns a copy of the embedded list, sorted by name.
func DefaultCountries() ([]Country, error) {
	defaultOnce.Do(func() {
		f, err := dataFS.Open(defaultListPath)
		if err != nil {
			defaultErr = err
			return
		}
		defer func() { _ = f.Close() }()

		list, err := LoadCountries(f)
		if err != nil {
			defaultErr = err
			return
		}
		defaultCountries = list
	})

	if defaultErr != nil {
		return nil, defaultErr
	}
	return append([]Country{}, defaultCountries...), nil
}

// LoadCountries parses "CODE|Name" lines. Blank lines and # comments are
// skipped, codes are upper-cased and deduplicated, and the result is sorted by
// name.
func LoadCountries(r io.Reader) ([]Country, error) {
	if r == nil {
		return nil, fmt.Errorf("countries: missing reader")
	}

	scanner := bufio.NewScanner(r)
	list := make([]Country, 0, 256)
	seen := map[string]struct{}{}

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		code, name, ok := strings.Cut(text, "|")
		code = strings.ToUpper(strings.TrimSpace(code))
		name = strings.TrimSpace(name)
		if !ok || len(code) != 2 || name == "" {
			return nil, fmt.Errorf("countries: malformed entry on line %d: %q", line, text)
		}
		if _, exists := seen[code]; exists {
			continue
		}
		seen[code] = struct{}{}
		list = append(list, Country{Code: code, Name: name})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sortCountries(list)
	return list, nil
}

// Lookup finds a country by code, case-insensitively.
func Lookup(list []Country, code string) (Country, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range list {
		if c.Code == code {
			return c, true
		}
	}
	return Country{}, false
}

// Resolve maps a code or a full country name onto its list entry, ignoring
// case and surrounding space.
func Resolve(list []Country, value string) (Country, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Country{}, false
	}
	for _, c := range list {
		if strings.EqualFold(c.Code, trimmed) || strings.EqualFold(c.Name, trimmed) {
			return c, true
		}
	}
	return Country{}, false
}

func sortCountries(list []Country) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].Code < list[j].Code
	})
}
