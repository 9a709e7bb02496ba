package countries

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

type HTTPError interface {
	error
	StatusCode() int
}

// StatusError lets a guard pick the response status.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type countriesResponse struct {
	Data []Country `json:"data"`
}

// Handler serves the country options as {"data": [...]}.
//
//	GET ?q=ger&limit=5  ranked search, flags attached
//	GET ?code=de        the single canonical entry for a code or name, 404 when unknown
func Handler(fns ...OptionFn) http.Handler {
	return NewHandler(fns...)
}

func NewHandler(fns ...OptionFn) http.Handler {
	return HandlerWithOptions(NewOptions(fns...))
}

// HandlerWithOptions builds a handler from a pre-constructed Options value.
func HandlerWithOptions(opts Options) http.Handler {
	return &countryHandler{opts: NewOptions(func(o *Options) { *o = opts })}
}

type countryHandler struct {
	opts Options
}

func (h *countryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.opts.Guard != nil {
		if err := h.opts.Guard(r); err != nil {
			writeGuardError(w, err)
			return
		}
	}

	list, err := h.countries()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	if code := query.Get(h.opts.CodeParam); code != "" {
		country, ok := Resolve(list, code)
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.write(w, r, []Country{country})
		return
	}

	limit, _ := strconv.Atoi(query.Get(h.opts.LimitParam))
	h.write(w, r, Search(list, query.Get(h.opts.SearchParam), limit, h.opts))
}

func (h *countryHandler) countries() ([]Country, error) {
	if h.opts.Countries != nil {
		return h.opts.Countries, nil
	}
	return DefaultCountries()
}

// write attaches flags after filtering so only returned entries are sanitised.
func (h *countryHandler) write(w http.ResponseWriter, r *http.Request, results []Country) {
	results = WithFlags(results, h.opts.FlagURLTemplate)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(countriesResponse{Data: results})
}

func writeGuardError(w http.ResponseWriter, err error) {
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode() > 0 {
		code = httpErr.StatusCode()
	}
	http.Error(w, http.StatusText(code), code)
}
