package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codequery/internal/api"
	"codequery/internal/core"
	"codequery/internal/gateway"
	"codequery/internal/query"
	"codequery/internal/service"
	"codequery/internal/settings"
)

// stubClient answers by matching a fragment of the SQL text.
type stubClient struct {
	responses map[string]*core.ResultSet
	queryErr  error
	queries   int
	execs     int
}

func (c *stubClient) Query(ctx context.Context, q string, args ...interface{}) (*core.ResultSet, error) {
	c.queries++
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	for fragment, rs := range c.responses {
		if strings.Contains(q, fragment) {
			return rs, nil
		}
	}
	return &core.ResultSet{Rows: []core.Row{}}, nil
}

func (c *stubClient) Exec(ctx context.Context, q string, args ...interface{}) (int64, error) {
	c.execs++
	return 1, nil
}

func (c *stubClient) Close() error { return nil }

const connJSON = `{"name":"plant","host":"localhost","port":"5432","user":"postgres","password":"pw","database":"codes"}`

var _ = Describe("API", func() {
	var (
		client *stubClient
		store  *settings.Store
		router http.Handler
	)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		client = &stubClient{responses: map[string]*core.ResultSet{
			"AS gtin": {Columns: []string{"gtin", "count"}, Rows: []core.Row{
				{"gtin": "04600000000012", "count": int64(2)},
			}},
			"AS total":        {Columns: []string{"total"}, Rows: []core.Row{{"total": int64(3)}}},
			"AS prefix_count": {Columns: []string{"prefix_count"}, Rows: []core.Row{{"prefix_count": int64(2)}}},
			"SELECT code": {Columns: []string{"code", "id"}, Rows: []core.Row{
				{"code": "0104600000000012", "id": int64(1)},
			}},
		}}
		gw := gateway.NewWithOpener(func(ctx context.Context, dsn string) (gateway.Client, error) {
			return client, nil
		}, gateway.Options{})
		reports := service.NewReportService(gw, query.NewBuilder())
		store = settings.NewStore(afero.NewMemMapFs(), []string{"/app/settings.json", "/home/op/settings.json"})
		router = api.NewRouter(api.NewHandler(reports, store), filepath.Join(GinkgoT().TempDir(), "missing"))
	})

	Context("settings", func() {
		It("should return empty collections before anything is saved", func() {
			rec := do(http.MethodGet, "/api/settings", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"connections":[],"products":[],"fieldLabels":{}}`))
		})

		// Given a settings document with a product
		// When it is posted and read back
		// Then every member, including field labels, round-trips
		It("should save and return settings", func() {
			body := `{"connections":[{"id":"c1","name":"plant","host":"db","port":5432,"user":"u","password":"p","database":"codes"}],
				"products":[{"id":"p1","name":"Water","gtin":"04600000000012"}],
				"fieldLabels":{"code":"Code"}}`
			rec := do(http.MethodPost, "/api/settings", body)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var saved struct {
				OK       bool               `json:"ok"`
				Path     string             `json:"path"`
				Attempts []core.SaveAttempt `json:"attempts"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &saved)).To(Succeed())
			Expect(saved.OK).To(BeTrue())
			Expect(saved.Path).To(Equal("/app/settings.json"))
			Expect(saved.Attempts).To(HaveLen(2))

			rec = do(http.MethodGet, "/api/settings", "")
			Expect(rec.Body.String()).To(MatchJSON(body))
		})

		It("should reject an invalid product GTIN", func() {
			rec := do(http.MethodPost, "/api/settings", `{"products":[{"id":"p","name":"x","gtin":"123"}]}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("summary", func() {
		It("should return the counts", func() {
			rec := do(http.MethodPost, "/api/summary",
				`{"connection":`+connJSON+`,"selectedGtin":"all","startDate":"2024-01-01","dateField":"production_date","status":"all"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(
				`{"rows":[{"gtin":"04600000000012","count":2}],"totalCount":3,"prefixCount":2,"nonPrefixCount":1}`))
		})

		DescribeTable("validation failures answer 400 without touching the database",
			func(body, message string) {
				rec := do(http.MethodPost, "/api/summary", body)
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(rec.Body.String()).To(ContainSubstring(message))
				Expect(client.queries).To(BeZero())
			},
			Entry("missing connection", `{"startDate":"2024-01-01","dateField":"dtime_ins"}`, "Missing parameters"),
			Entry("missing start date", `{"connection":`+connJSON+`,"dateField":"dtime_ins"}`, "Missing parameters"),
			Entry("bad date field", `{"connection":`+connJSON+`,"startDate":"2024-01-01","dateField":"code"}`, "Invalid dateField"),
			Entry("malformed JSON", `{"connection":`, "Invalid JSON"),
		)

		It("should answer 500 with the database message", func() {
			client.queryErr = errors.New(`column "production_date" does not exist`)
			rec := do(http.MethodPost, "/api/summary",
				`{"connection":"host=localhost dbname=codes","startDate":"2024-01-01","dateField":"production_date"}`)
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).To(ContainSubstring(`column "production_date" does not exist`))
		})
	})

	Context("full", func() {
		It("should return plain records and strip the forced id", func() {
			rec := do(http.MethodPost, "/api/full",
				`{"connection":`+connJSON+`,"startDate":"2024-01-01","dateField":"dtime_ins","columns":["code"],"markAsExported":true,"limit":"10"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`[{"code":"0104600000000012"}]`))
			Expect(client.execs).To(Equal(1))
		})

		It("should download a CSV export", func() {
			Expect(store.Save(context.Background(), core.Settings{FieldLabels: map[string]string{"code": "Code"}})).NotTo(BeNil())
			rec := do(http.MethodPost, "/api/full/export?format=csv",
				`{"connection":`+connJSON+`,"startDate":"2024-01-01","dateField":"dtime_ins","columns":["code"]}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Disposition")).To(Equal(`attachment; filename="codes_2024-01-01.csv"`))
			Expect(rec.Body.String()).To(HavePrefix("\uFEFFCode,id\n"))
		})

		It("should reject an unknown export format", func() {
			rec := do(http.MethodPost, "/api/full/export?format=pdf", `{}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	It("should download the summary workbook", func() {
		rec := do(http.MethodPost, "/api/summary/export",
			`{"connection":`+connJSON+`,"startDate":"2024-01-01","endDate":"2024-01-31","dateField":"production_date"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("summary_2024-01-01_2024-01-31.xlsx"))

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		rows, err := f.GetRows("Results")
		Expect(err).NotTo(HaveOccurred())
		Expect(rows[len(rows)-1]).To(Equal([]string{"Total records found", "", "3"}))
	})

	It("should preview SQL without connecting", func() {
		rec := do(http.MethodPost, "/api/sql", `{"startDate":"2024-01-01","dateField":"production_date","status":9}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var preview struct {
			Full  query.Statement `json:"full"`
			Total query.Statement `json:"total"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &preview)).To(Succeed())
		Expect(preview.Full.SQL).To(Equal("SELECT * FROM codes WHERE production_date::date = $1 AND status = $2"))
		Expect(preview.Full.Args).To(Equal([]interface{}{"2024-01-01", "9"}))
		Expect(client.queries).To(BeZero())
	})

	It("should return an empty history when journaling is off", func() {
		rec := do(http.MethodGet, "/api/history?limit=5", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`[]`))
	})

	It("should answer the health check without a UI bundle", func() {
		rec := do(http.MethodGet, "/", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(api.HealthText))
	})

	It("should allow cross-origin requests", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/summary", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
	})
})

var _ = Describe("SPA", func() {
	var router http.Handler

	BeforeEach(func() {
		dist := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>app</html>"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dist, "app.js"), []byte("console.log(1)"), 0o644)).To(Succeed())
		router = api.NewRouter(api.NewHandler(nil, nil), dist)
	})

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	It("should serve bundle files", func() {
		Expect(get("/app.js").Body.String()).To(Equal("console.log(1)"))
	})

	It("should fall back to index.html for client routes", func() {
		rec := get("/reports/summary")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("<html>app</html>"))
	})

	It("should not fall back for unknown API paths", func() {
		Expect(get("/api/unknown").Code).To(Equal(http.StatusNotFound))
	})
})
