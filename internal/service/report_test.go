package service_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codequery/internal/core"
	"codequery/internal/query"
	"codequery/internal/service"
)

func profileConn() *core.ConnectionDescriptor {
	return &core.ConnectionDescriptor{Profile: &core.ConnectionProfile{
		Name: "plant", Host: "localhost", Port: 5432, User: "postgres", Database: "codes",
	}}
}

func rowsOf(columns []string, rows ...core.Row) *core.ResultSet {
	if rows == nil {
		rows = []core.Row{}
	}
	return &core.ResultSet{Columns: columns, Rows: rows}
}

var _ = Describe("ReportService", func() {
	var (
		ctx     context.Context
		client  *fakeClient
		history *fakeHistory
		svc     *service.ReportService
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = newFakeClient()
		history = &fakeHistory{}
		svc = service.NewReportService(gatewayFor(client, nil), query.NewBuilder(), service.WithHistory(history))
	})

	Context("Summary", func() {
		var req core.SummaryRequest

		BeforeEach(func() {
			req = core.SummaryRequest{
				Connection: profileConn(),
				QueryFilter: core.QueryFilter{
					StartDate: "2024-01-01",
					DateField: core.DateFieldProduction,
				},
			}
			client.responses["AS gtin"] = rowsOf([]string{"gtin", "count"},
				core.Row{"gtin": "04600000000012", "count": int64(2)})
			client.responses["AS total"] = rowsOf([]string{"total"}, core.Row{"total": int64(3)})
			client.responses["AS prefix_count"] = rowsOf([]string{"prefix_count"}, core.Row{"prefix_count": int64(2)})
		})

		// Given three codes of which two carry the recognized prefix
		// When the summary runs
		// Then the counts add up and the connection is closed
		It("should return grouped rows and derived counts", func() {
			result, err := svc.Summary(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Rows).To(Equal([]core.GTINCount{{GTIN: "04600000000012", Count: 2}}))
			Expect(result.TotalCount).To(BeEquivalentTo(3))
			Expect(result.PrefixCount).To(BeEquivalentTo(2))
			Expect(result.NonPrefixCount).To(BeEquivalentTo(1))
			Expect(client.queries).To(HaveLen(3))
			Expect(client.closed).To(Equal(1))
		})

		It("should never report a negative non-prefix count", func() {
			client.responses["AS total"] = rowsOf([]string{"total"}, core.Row{"total": int64(1)})
			result, err := svc.Summary(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.NonPrefixCount).To(BeZero())
		})

		It("should reject a missing connection before connecting", func() {
			req.Connection = nil
			_, err := svc.Summary(ctx, req)
			Expect(errors.Is(err, core.ErrMissingParameters)).To(BeTrue())
			Expect(client.queries).To(BeEmpty())
			Expect(history.entries).To(BeEmpty())
		})

		It("should reject an unknown date field", func() {
			req.DateField = "dtime_status"
			_, err := svc.Summary(ctx, req)
			Expect(errors.Is(err, core.ErrInvalidDateField)).To(BeTrue())
		})

		It("should close the connection and journal the failure when a query fails", func() {
			client.queryErr = errors.New(`relation "codes" does not exist`)
			_, err := svc.Summary(ctx, req)
			Expect(err).To(MatchError(`relation "codes" does not exist`))
			Expect(client.closed).To(Equal(1))
			Expect(history.entries).To(HaveLen(1))
			Expect(history.entries[0].Outcome).To(Equal(core.OutcomeError))
			Expect(history.entries[0].ConnectionName).To(Equal("plant"))
		})

		It("should surface connect failures", func() {
			svc = service.NewReportService(gatewayFor(client, errBoom), query.NewBuilder())
			_, err := svc.Summary(ctx, req)
			Expect(err).To(MatchError(errBoom))
		})

		It("should still succeed when the journal fails", func() {
			history.err = errBoom
			_, err := svc.Summary(ctx, req)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("Full", func() {
		var req core.FullExportRequest

		BeforeEach(func() {
			req = core.FullExportRequest{
				Connection: profileConn(),
				QueryFilter: core.QueryFilter{
					StartDate: "2024-01-01",
					DateField: core.DateFieldInserted,
				},
				Columns: []string{"code"},
			}
			client.responses["SELECT"] = rowsOf([]string{"code", "id"},
				core.Row{"code": "0104600000000012", "id": int64(7)},
				core.Row{"code": "0104600000000029", "id": int64(8)},
			)
			client.affected = 2
		})

		It("should return rows without touching status when not marking", func() {
			client.responses["SELECT"] = rowsOf([]string{"code"}, core.Row{"code": "0104600000000012"})
			result, err := svc.Full(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Rows.Rows).To(HaveLen(1))
			Expect(client.execs).To(BeEmpty())
			Expect(client.closed).To(Equal(1))
		})

		// Given an export of the code column with markAsExported
		// When the export runs
		// Then the selected ids are updated and id is stripped from the rows
		It("should mark rows and strip the id it added", func() {
			req.MarkAsExported = true
			result, err := svc.Full(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Marked).To(BeEquivalentTo(2))
			Expect(client.queries[0]).To(HavePrefix("SELECT code, id FROM codes"))
			Expect(client.execs).To(HaveLen(1))
			Expect(client.execs[0].sql).To(Equal("UPDATE codes SET status = 9, dtime_status = NOW() WHERE id = ANY($1)"))
			Expect(result.Rows.Columns).To(Equal([]string{"code"}))
			for _, row := range result.Rows.Rows {
				Expect(row).NotTo(HaveKey("id"))
			}
			Expect(history.entries[0].MarkedCount).To(BeEquivalentTo(2))
			Expect(history.entries[0].RowCount).To(BeEquivalentTo(2))
		})

		It("should keep id when the caller asked for it", func() {
			req.MarkAsExported = true
			req.Columns = []string{"code", "id"}
			result, err := svc.Full(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Rows.Rows[0]).To(HaveKeyWithValue("id", int64(7)))
		})

		It("should return the rows even when the update fails", func() {
			req.MarkAsExported = true
			client.execErr = errors.New("permission denied for table codes")
			result, err := svc.Full(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Marked).To(BeZero())
			Expect(result.Rows.Rows).To(HaveLen(2))
			Expect(result.Rows.Rows[0]).NotTo(HaveKey("id"))
		})

		It("should skip the update when no row has an id", func() {
			req.MarkAsExported = true
			client.responses["SELECT"] = rowsOf([]string{"code", "id"}, core.Row{"code": "x", "id": nil})
			_, err := svc.Full(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(client.execs).To(BeEmpty())
		})

		It("should close the connection when the select fails", func() {
			client.queryErr = errBoom
			_, err := svc.Full(ctx, req)
			Expect(err).To(MatchError(errBoom))
			Expect(client.closed).To(Equal(1))
		})
	})

	Context("Preview", func() {
		It("should render statements without a connection", func() {
			preview, err := svc.Preview(core.FullExportRequest{
				QueryFilter: core.QueryFilter{StartDate: "2024-01-01", DateField: core.DateFieldProduction},
				Limit:       10,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(preview.Full.SQL).To(HavePrefix("SELECT * FROM codes"))
			Expect(strings.HasSuffix(preview.Full.SQL, "LIMIT 10")).To(BeTrue())
			Expect(preview.Total.SQL).To(ContainSubstring("COUNT(*)::int AS total"))
			Expect(client.queries).To(BeEmpty())
		})

		It("should still validate the filter", func() {
			_, err := svc.Preview(core.FullExportRequest{})
			Expect(errors.Is(err, core.ErrValidation)).To(BeTrue())
		})
	})

	It("should return an empty history when journaling is off", func() {
		svc = service.NewReportService(gatewayFor(client, nil), query.NewBuilder())
		entries, err := svc.History(ctx, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})
})
