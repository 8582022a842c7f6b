package codelist

import (
	"context"
	"net/url"
	"strings"

	"statbridge/internal/fetch"
)

const structureAccept = "application/vnd.sdmx.structure+json;version=1.0"

// Getter is the subset of fetch.Client the HTTP source needs.
type Getter interface {
	Get(ctx context.Context, req fetch.Request) (*fetch.Response, error)
}

// HTTPSource reads structural metadata from an SDMX REST endpoint.
type HTTPSource struct {
	getter  Getter
	baseURL string
}

func NewHTTPSource(getter Getter, baseURL string) *HTTPSource {
	return &HTTPSource{getter: getter, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dataflow fetches flow metadata. flowID is a bare id or "agency,id,version".
func (s *HTTPSource) Dataflow(ctx context.Context, flowID string) ([]byte, error) {
	agency, id, version := "all", flowID, "latest"
	if parts := strings.Split(flowID, ","); len(parts) >= 2 && len(parts) <= 3 {
		id = parts[1]
		if parts[0] != "" {
			agency = parts[0]
		}
		if len(parts) == 3 && parts[2] != "" {
			version = parts[2]
		}
	}
	return s.get(ctx, s.baseURL+"/dataflow/"+url.PathEscape(agency)+"/"+
		url.PathEscape(id)+"/"+url.PathEscape(version))
}

func (s *HTTPSource) Structure(ctx context.Context, ref Ref) ([]byte, error) {
	return s.get(ctx, s.baseURL+"/datastructure/"+url.PathEscape(ref.Agency)+"/"+
		url.PathEscape(ref.ID)+"/"+url.PathEscape(ref.Version)+"?references=children")
}

func (s *HTTPSource) get(ctx context.Context, u string) ([]byte, error) {
	resp, err := s.getter.Get(ctx, fetch.Request{
		URL:     u,
		Headers: map[string]string{"Accept": structureAccept},
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
