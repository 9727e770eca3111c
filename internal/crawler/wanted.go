package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qws941/resume-sub005/internal/model"
	"github.com/qws941/resume-sub005/internal/session"
)

const (
	wantedBaseURL  = "https://www.wanted.co.kr/api/v4"
	wantedPageSize = 20
	wantedMaxPages = 5
	httpTimeout    = 10 * time.Second
)

// Wanted crawls job listings from the Wanted platform. Authenticated
// access reuses the persisted session when one is still valid; otherwise
// it performs a fresh login with vault credentials. Outbound traffic is
// routed through the rotator's current egress identity when a pool is
// configured.
//
// Missing credentials are not an error: Crawl logs and returns nil so the
// cycle simply skips this platform for the round.
type Wanted struct {
	deps     Deps
	keywords string
	location string
	maxPages int
}

// NewWantedFactory returns the registry factory for the wanted platform.
func NewWantedFactory(deps Deps) Factory {
	return func(opts Options) (Crawler, error) {
		return &Wanted{
			deps:     deps,
			keywords: opts.String("keywords", "backend"),
			location: opts.String("location", "seoul"),
			maxPages: opts.Int("maxPages", wantedMaxPages),
		}, nil
	}
}

// Platform implements Crawler.
func (w *Wanted) Platform() string { return "wanted" }

// wantedResponse mirrors the listing endpoint's top-level JSON shape.
type wantedResponse struct {
	Data []wantedJob `json:"data"`
}

type wantedJob struct {
	ID       int    `json:"id"`
	Position string `json:"position"`
	Company  struct {
		Name string `json:"name"`
	} `json:"company"`
	Address struct {
		Location string `json:"location"`
	} `json:"address"`
	Detail struct {
		Intro string `json:"intro"`
	} `json:"detail"`
	DueTime string `json:"due_time"`
}

// Crawl fetches all available listings for the configured search,
// iterating pages until an empty page or the page cap.
func (w *Wanted) Crawl(ctx context.Context) ([]model.Job, error) {
	cookie, ok := w.authenticate(ctx)
	if !ok {
		return nil, nil
	}

	client, proxyAddr := w.newClient()

	var results []model.Job
	for page := 0; page < w.maxPages; page++ {
		batch, err := w.fetchPage(ctx, client, cookie, page)
		if err != nil {
			if proxyAddr != "" {
				w.deps.Proxies.MarkFailed(proxyAddr)
			}
			return results, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		results = append(results, batch...)
		if len(batch) < wantedPageSize {
			break // last page
		}
	}

	return results, nil
}

// authenticate returns a valid session cookie, reusing the stored session
// or logging in fresh with vault credentials. Absent result means skip.
func (w *Wanted) authenticate(ctx context.Context) (string, bool) {
	if sess, ok := w.deps.Sessions.Load(ctx, "wanted"); ok {
		return sess.CookieString, true
	}

	creds, ok := w.deps.Vault.Retrieve("wanted")
	if !ok {
		// Not stored yet — the environment convention may still hold them.
		if found, err := w.deps.Vault.LoadFromEnvironment("wanted"); err != nil || !found {
			log.Println("[wanted] No session and no credentials — skipping this round")
			return "", false
		}
		if creds, ok = w.deps.Vault.Retrieve("wanted"); !ok {
			return "", false
		}
	}

	cookie, err := w.login(ctx, creds["username"], creds["password"])
	if err != nil {
		log.Printf("[wanted] Login failed — skipping this round: %v", err)
		return "", false
	}

	if err := w.deps.Sessions.Save(ctx, "wanted", session.Session{
		CookieString: cookie,
		Email:        creds["username"],
	}); err != nil {
		log.Printf("[wanted] Session save failed (continuing with in-memory cookie): %v", err)
	}
	return cookie, true
}

// login exchanges credentials for a session cookie string.
func (w *Wanted) login(ctx context.Context, email, password string) (string, error) {
	client, proxyAddr := w.newClient()

	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wantedBaseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if proxyAddr != "" {
			w.deps.Proxies.MarkFailed(proxyAddr)
		}
		return "", fmt.Errorf("http POST: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var pairs []string
	for _, c := range resp.Cookies() {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	if len(pairs) == 0 {
		return "", fmt.Errorf("login response carried no cookies")
	}
	return strings.Join(pairs, "; "), nil
}

func (w *Wanted) fetchPage(ctx context.Context, client *http.Client, cookie string, page int) ([]model.Job, error) {
	params := url.Values{}
	params.Set("query", w.keywords)
	params.Set("locations", w.location)
	params.Set("limit", strconv.Itoa(wantedPageSize))
	params.Set("offset", strconv.Itoa(page*wantedPageSize))
	params.Set("sort", "job.latest_order")

	reqURL := wantedBaseURL + "/jobs?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", cookie)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wanted returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp wantedResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	results := make([]model.Job, 0, len(apiResp.Data))
	for _, r := range apiResp.Data {
		results = append(results, model.Job{
			ExternalID:  strconv.Itoa(r.ID),
			Title:       r.Position,
			Company:     r.Company.Name,
			Location:    r.Address.Location,
			Description: r.Detail.Intro,
			SourceURL:   fmt.Sprintf("https://www.wanted.co.kr/wd/%d", r.ID),
			PublishedAt: r.DueTime,
		})
	}

	return results, nil
}

// newClient builds an HTTP client with the mandatory short timeout and,
// when the rotator yields an identity, a proxied transport. The chosen
// address is returned so failures can be reported back to the rotator.
func (w *Wanted) newClient() (*http.Client, string) {
	client := &http.Client{Timeout: httpTimeout}

	addr, ok := w.deps.Proxies.GetNext()
	if !ok {
		return client, ""
	}

	proxyURL, err := url.Parse(addr)
	if err != nil || proxyURL.Scheme == "" {
		proxyURL, err = url.Parse("http://" + addr)
	}
	if err != nil {
		log.Printf("[wanted] Unusable proxy address %q — going direct: %v", addr, err)
		return client, ""
	}

	client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	return client, addr
}
