package showroom

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// rowHTML renders one data row with the given account id and start time.
func rowHTML(account, started string) string {
	var b strings.Builder
	b.WriteString("<tr>")
	fmt.Fprintf(&b, `<td class="delim">%s</td>`, account)
	b.WriteString(`<td class="delim">room-1</td>`)
	fmt.Fprintf(&b, `<td class="delim">%s<br>(12m30s)</td>`, started)
	for i := 3; i < CellCount; i++ {
		fmt.Fprintf(&b, `<td class="delim">%d,000</td>`, i)
	}
	b.WriteString("</tr>")
	return b.String()
}

const headerRowHTML = `<tr><th>ID</th><th>Room</th></tr>`

func pageHTML(rows ...string) string {
	return `<html><body><table class="table table-striped"><tbody>` +
		headerRowHTML + strings.Join(rows, "") +
		`</tbody></table></body></html>`
}

const noTableHTML = `<html><body><p>ログインしてください</p></body></html>`

// fakeFetcher serves canned bodies by page number and records requests.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string // page query value -> body
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)

	page := pageParam(url)
	if err, ok := f.errs[page]; ok {
		return nil, err
	}
	return []byte(f.pages[page]), nil
}

func (f *fakeFetcher) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	pages := make([]string, len(f.calls))
	for i, u := range f.calls {
		pages[i] = pageParam(u)
	}
	return pages
}

func pageParam(url string) string {
	_, query, _ := strings.Cut(url, "?")
	for _, kv := range strings.Split(query, "&") {
		if v, ok := strings.CutPrefix(kv, "page="); ok {
			return v
		}
	}
	return ""
}
