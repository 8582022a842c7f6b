package httptransport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"statbridge/internal/alias"
	"statbridge/internal/platform/metrics"
	"statbridge/internal/region"
	"statbridge/internal/routing"
	"statbridge/internal/series/models"
	"statbridge/internal/series/service"
	"statbridge/internal/transport/http/mocks"
	dErrors "statbridge/pkg/domain-errors"
	"statbridge/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/series-mocks.go -package=mocks SeriesService

type fakeHealth map[string]error

func (f fakeHealth) Health(context.Context) map[string]error { return f }

type HandlerSuite struct {
	suite.Suite
	series  *mocks.MockSeriesService
	health  fakeHealth
	metrics *metrics.Metrics
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.series = mocks.NewMockSeriesService(ctrl)
	s.health = fakeHealth{}
	reg := prometheus.NewRegistry()
	s.metrics = metrics.New(reg)

	aliases := alias.Build(alias.Dictionary{
		"gdp_growth":        {"GDP Growth", "economic growth"},
		"unemployment_rate": {"jobless rate"},
	})
	h := NewHandler(s.series, aliases, region.New(), s.health, nil)
	s.router = NewRouter(h, RouterConfig{Latency: s.metrics, Gatherer: reg, RequestTimeout: time.Second})
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	return testutil.Get(s.router, path)
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	return testutil.DecodeJSON[map[string]any](s.T(), w)
}

func (s *HandlerSuite) TestGetSeries() {
	found := models.NewSeries("gdp_growth", "percent", "A",
		[]models.Observation{{Time: "2021", Value: 5.1, Geo: models.Geo("SE")}},
		models.Source{Provider: "eurostat", ProviderID: "tec00115"}, time.Now())
	s.series.EXPECT().Get(gomock.Any(), service.Query{
		Indicator: "GDP Growth",
		Geo:       "SE",
		Prefer:    "oecd",
		Strict:    true,
		Unit:      "per_1000",
		GeoSystem: "iso3",
	}).Return(&service.Result{
		Series:     found,
		Resolution: alias.Resolution{SemanticID: "gdp_growth"},
		Outcome:    routing.Outcome{ProviderUsed: "eurostat", ProviderOrder: []routing.ProviderKey{"eurostat"}},
	}, nil)

	w := s.get("/v1/series/GDP%20Growth?geo=SE&prefer=oecd&strict=true&unit=per_1000&geo_system=iso3")
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(w.Header().Get("X-Request-ID"))

	body := s.decode(w)
	series := body["series"].(map[string]any)
	s.Equal("gdp_growth", series["semantic_id"])
	s.Len(series["values"], 1)
	s.Equal("eurostat", body["routing"].(map[string]any)["provider_used"])
}

func (s *HandlerSuite) TestGetSeriesNotFoundCarriesDiagnostics() {
	s.series.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil,
		dErrors.New(dErrors.CodeNotFound, "no provider returned data for gdp_growth").
			WithDetails(map[string]any{"errors": []string{"eurostat: [provider_outage] status 503"}}))

	env := testutil.AssertStatusAndError(s.T(), s.get("/v1/series/gdp_growth"), http.StatusNotFound, "not_found")
	s.Len(env.Details["errors"], 1)
}

func (s *HandlerSuite) TestGetSeriesBadGateway() {
	s.series.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil,
		dErrors.New(dErrors.CodeBadGateway, "upstream returned malformed data"))

	testutil.AssertStatusAndError(s.T(), s.get("/v1/series/gdp_growth"), http.StatusBadGateway, "bad_gateway")
}

func (s *HandlerSuite) TestGetSeriesInternalErrorHidesMessage() {
	s.series.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis exploded"))

	w := s.get("/v1/series/gdp_growth")
	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "redis")
}

func (s *HandlerSuite) TestGetSeriesRejectsBadStrict() {
	w := s.get("/v1/series/gdp_growth?strict=maybe")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestResolveAlias() {
	body := s.decode(s.get("/v1/aliases/Economic%20Growth"))
	s.Equal("gdp_growth", body["semantic_id"])
	s.Equal("economic_growth", body["matched_alias"])
	s.Equal(true, body["known"])

	body = s.decode(s.get("/v1/aliases/gdp_grwth"))
	s.Equal("gdp_grwth", body["semantic_id"])
	s.Nil(body["matched_alias"])
	s.Equal(false, body["known"])
	s.Equal([]any{"gdp_growth"}, body["suggestions"])
}

func (s *HandlerSuite) TestMapRegion() {
	w := s.get("/v1/regions/SE?to=iso3")
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal("iso2", body["system"])
	s.Equal("Sweden", body["name"])
	s.Equal(map[string]any{"system": "iso3", "code": "SWE"}, body["mapped"])

	w = s.get("/v1/regions/0180?to=hierarchical")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("SE110", s.decode(w)["mapped"].(map[string]any)["code"])
}

func (s *HandlerSuite) TestMapRegionErrors() {
	s.Equal(http.StatusBadRequest, s.get("/v1/regions/SE?to=postcode").Code)
	s.Equal(http.StatusBadRequest, s.get("/v1/regions/SE?from=postcode").Code)
	s.Equal(http.StatusNotFound, s.get("/v1/regions/QQ?to=iso3").Code)
	s.Equal(http.StatusNotFound, s.get("/v1/regions/QQ").Code)
}

func (s *HandlerSuite) TestConvertUnit() {
	w := s.get("/v1/units/convert?value=2.5&from=percent&to=per%201000")
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.InDelta(25.0, body["converted"], 1e-9)
	s.Equal("per_1000", body["to"])

	s.Equal(http.StatusBadRequest, s.get("/v1/units/convert?value=abc&from=percent&to=ratio").Code)
	s.Equal(http.StatusBadRequest, s.get("/v1/units/convert?value=1&from=count&to=percent").Code)
}

func (s *HandlerSuite) TestNormalizeUnit() {
	body := s.decode(s.get("/v1/units/normalize?text=deaths%20per%20100%2C000%20population"))
	s.Equal("per_100k", body["unit"])
	s.Equal(true, body["is_rate"])
}

func (s *HandlerSuite) TestHealth() {
	w := s.get("/healthz")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("ok", s.decode(w)["status"])

	s.health["oecd"] = errors.New("status 503")
	body := s.decode(s.get("/healthz?deep=true"))
	s.Equal("degraded", body["status"])
	s.Equal("status 503", body["providers"].(map[string]any)["oecd"])
}

func (s *HandlerSuite) TestMetricsEndpoint() {
	s.get("/v1/units/normalize?text=percent")
	w := s.get("/metrics")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `statbridge_http_request_duration_seconds_count{route="/v1/units/normalize",status="200"} 1`)
}

func (s *HandlerSuite) TestUnknownRoute() {
	testutil.AssertStatusAndError(s.T(), s.get("/v2/nothing"), http.StatusNotFound, "not_found")
}
