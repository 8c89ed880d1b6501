// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/corpus-engine/internal/scratch"
	"github.com/pdiddy/corpus-engine/internal/secrets"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Base URLs for route endpoints. Declared as vars so tests can substitute
// httptest servers.
var (
	openAlexAPIBase  = "https://api.openalex.org/works/"
	elsevierAPIBase  = "https://api.elsevier.com/content/article/doi/"
	springerHTMLBase = "https://link.springer.com/"
	wileyTDMBase     = "https://api.wiley.com/onlinelibrary/tdm/v1/articles/"
)

// Credentials holds per-route authentication material, loaded from the
// .secrets directory at startup.
type Credentials struct {
	// ElsevierAPIKey authenticates against the Elsevier article API.
	ElsevierAPIKey string

	// WileyTDMToken is the Wiley text-and-data-mining client token.
	WileyTDMToken string

	// ProxyBase is the institutional proxy base URL; empty disables the
	// institutional-proxy route.
	ProxyBase string
}

// CredentialsFromSecrets extracts route credentials from a loaded secret map.
func CredentialsFromSecrets(loaded map[string]string) Credentials {
	return Credentials{
		ElsevierAPIKey: loaded[secrets.KeyElsevierAPIKey],
		WileyTDMToken:  loaded[secrets.KeyWileyTDMToken],
		ProxyBase:      strings.TrimRight(loaded[secrets.KeyProxyBase], "/"),
	}
}

// attemptClass is the orchestrator's classification of one route attempt.
type attemptClass int

const (
	// classHardSuccess: full artifact, expected format confirmed.
	classHardSuccess attemptClass = iota
	// classSoftSuccess: artifact retrieved but format mismatched or body
	// truncated; kept as a PartialSuccess candidate.
	classSoftSuccess
	// classRetryable: transient failure, retry with backoff on this route.
	classRetryable
	// classDenied: terminal for this route, advance to the next.
	classDenied
)

type attemptResult struct {
	class  attemptClass
	data   []byte
	format types.ArtifactFormat
	reason types.FailReason
	detail string
}

func retryable(detail string) attemptResult {
	return attemptResult{class: classRetryable, reason: types.ReasonRouteUnavailable, detail: detail}
}

func denied(detail string) attemptResult {
	return attemptResult{class: classDenied, reason: types.ReasonRouteDenied, detail: detail}
}

// executeRoute runs one attempt of one route for an identifier. The caller
// holds the rate-limit slot for the route's class for the duration.
func (o *Orchestrator) executeRoute(ctx context.Context, route types.AccessRoute, id types.WorkIdentifier, key string) attemptResult {
	switch route.Kind {
	case types.RouteOpenAccess:
		return o.fetchOpenAccess(ctx, route, id)
	case types.RoutePublisherAPI:
		return o.fetchPublisherAPI(ctx, route, id)
	case types.RouteProxy:
		return o.fetchProxy(ctx, route, id)
	case types.RouteManual:
		return o.fetchManual(key)
	default:
		return denied(fmt.Sprintf("unknown route kind %q", route.Kind))
	}
}

// fetchOpenAccess resolves an open-access location via OpenAlex and
// downloads it. No location is terminal for the route, not an error.
func (o *Orchestrator) fetchOpenAccess(ctx context.Context, route types.AccessRoute, id types.WorkIdentifier) attemptResult {
	oaURL, res, ok := o.resolveOpenAlex(ctx, id.ID)
	if !ok {
		return res
	}
	if oaURL == "" {
		return denied("no open-access location")
	}
	return o.download(ctx, route, oaURL, nil)
}

// openAlexResponse captures the fields we need from an OpenAlex work record.
type openAlexResponse struct {
	BestOALocation *struct {
		PDFURL     string `json:"pdf_url"`
		LandingURL string `json:"landing_page_url"`
	} `json:"best_oa_location"`
}

func (o *Orchestrator) resolveOpenAlex(ctx context.Context, doi string) (string, attemptResult, bool) {
	apiURL := openAlexAPIBase + "https://doi.org/" + doi

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", denied(fmt.Sprintf("creating OpenAlex request: %v", err)), false
	}
	req.Header.Set("User-Agent", o.cfg.UserAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", retryable(fmt.Sprintf("OpenAlex request: %v", err)), false
	}
	defer resp.Body.Close()

	if cls := classifyStatus(resp.StatusCode); cls != classHardSuccess {
		return "", attemptResult{class: cls, reason: reasonForClass(cls), detail: fmt.Sprintf("OpenAlex HTTP %d", resp.StatusCode)}, false
	}

	var oa openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oa); err != nil {
		return "", denied(fmt.Sprintf("parsing OpenAlex response: %v", err)), false
	}
	if oa.BestOALocation == nil {
		return "", attemptResult{}, true
	}
	return oa.BestOALocation.PDFURL, attemptResult{}, true
}

// fetchPublisherAPI builds the publisher-specific request. Elsevier serves
// full text from its article API keyed by API key; Springer serves plain
// HTML; Wiley serves PDF through its TDM endpoint with a client token.
func (o *Orchestrator) fetchPublisherAPI(ctx context.Context, route types.AccessRoute, id types.WorkIdentifier) attemptResult {
	var target string
	var header http.Header

	switch route.Publisher {
	case "elsevier":
		if o.creds.ElsevierAPIKey == "" {
			return denied("no Elsevier API key configured")
		}
		target = elsevierAPIBase + id.ID + "?apiKey=" + url.QueryEscape(o.creds.ElsevierAPIKey)
		header = http.Header{"Accept": []string{"text/xml"}}
	case "springer":
		target = springerHTMLBase + id.ID + ".html"
		header = http.Header{"Accept": []string{"text/html"}}
	case "wiley":
		if o.creds.WileyTDMToken == "" {
			return denied("no Wiley TDM token configured")
		}
		target = wileyTDMBase + url.PathEscape(id.ID)
		header = http.Header{"Wiley-TDM-Client-Token": []string{o.creds.WileyTDMToken}}
	default:
		return denied(fmt.Sprintf("no API endpoint for publisher %q", route.Publisher))
	}

	return o.download(ctx, route, target, header)
}

func (o *Orchestrator) fetchProxy(ctx context.Context, route types.AccessRoute, id types.WorkIdentifier) attemptResult {
	if o.creds.ProxyBase == "" {
		return denied("no institutional proxy configured")
	}
	return o.download(ctx, route, o.creds.ProxyBase+"/"+id.ID, nil)
}

// fetchManual serves a pre-staged artifact from the scratch cache. It is
// the fallback of last resort and never touches the network.
func (o *Orchestrator) fetchManual(key string) attemptResult {
	art, err := o.store.Get(key)
	if err != nil {
		return denied("no staged artifact")
	}
	if art.Format == types.FormatUnknown {
		return attemptResult{
			class:  classSoftSuccess,
			data:   art.Data,
			format: art.Format,
			reason: types.ReasonFormatMismatch,
			detail: "staged artifact has unrecognized format",
		}
	}
	return attemptResult{class: classHardSuccess, data: art.Data, format: art.Format}
}

// download GETs target and classifies the response body against the
// route's expected format.
func (o *Orchestrator) download(ctx context.Context, route types.AccessRoute, target string, header http.Header) attemptResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return denied(fmt.Sprintf("creating request: %v", err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", o.cfg.UserAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return retryable(fmt.Sprintf("request: %v", err))
	}
	defer resp.Body.Close()

	if cls := classifyStatus(resp.StatusCode); cls != classHardSuccess {
		return attemptResult{class: cls, reason: reasonForClass(cls), detail: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, route.Name())}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		// A broken body mid-transfer may still be worth keeping if we got
		// most of it; short reads are retried instead.
		if len(data) > 0 && resp.ContentLength > 0 && int64(len(data)) >= resp.ContentLength/2 {
			return attemptResult{
				class:  classSoftSuccess,
				data:   data,
				format: scratch.DetectFormat(data, resp.Header.Get("Content-Type")),
				reason: types.ReasonTruncated,
				detail: fmt.Sprintf("body truncated at %d of %d bytes", len(data), resp.ContentLength),
			}
		}
		return retryable(fmt.Sprintf("reading body: %v", err))
	}
	if len(data) == 0 {
		return retryable("empty response body")
	}
	if resp.ContentLength > 0 && int64(len(data)) < resp.ContentLength {
		return attemptResult{
			class:  classSoftSuccess,
			data:   data,
			format: scratch.DetectFormat(data, resp.Header.Get("Content-Type")),
			reason: types.ReasonTruncated,
			detail: fmt.Sprintf("body truncated at %d of %d bytes", len(data), resp.ContentLength),
		}
	}

	format := scratch.DetectFormat(data, resp.Header.Get("Content-Type"))
	if route.Format != types.FormatUnknown && format != route.Format {
		return attemptResult{
			class:  classSoftSuccess,
			data:   data,
			format: format,
			reason: types.ReasonFormatMismatch,
			detail: fmt.Sprintf("expected %s, detected %s", route.Format, format),
		}
	}

	return attemptResult{class: classHardSuccess, data: data, format: format}
}

// classifyStatus maps an HTTP status to an attempt class: 2xx succeeds,
// timeouts / throttling / server errors are retryable, everything else is
// terminal for the route.
func classifyStatus(code int) attemptClass {
	switch {
	case code >= 200 && code < 300:
		return classHardSuccess
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return classRetryable
	default:
		return classDenied
	}
}

func reasonForClass(cls attemptClass) types.FailReason {
	if cls == classRetryable {
		return types.ReasonRouteUnavailable
	}
	return types.ReasonRouteDenied
}
