package export

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/pricing"
)

type fakeUploader struct {
	key         string
	contentType string
	size        int
}

func (f *fakeUploader) Upload(_ context.Context, key string, body []byte, contentType string) (string, error) {
	f.key = key
	f.contentType = contentType
	f.size = len(body)
	return "https://files.example.com/" + key, nil
}

func quotationFixture() QuotationData {
	detail := plan.OrderDetail{
		"1710115200000": {
			Restaurant: plan.Restaurant{
				ID:             "rest-1",
				RestaurantName: "Banh Mi Corner",
				FoodList: map[string]plan.Food{
					"food-1": {FoodName: "Banh mi thit", FoodPrice: 50000},
				},
			},
			MemberOrders: map[string]plan.MemberOrder{
				"member-1": {FoodID: "food-1", Status: plan.MemberStatusJoined, Requirement: "no cilantro"},
				"member-2": {FoodID: "food-1", Status: plan.MemberStatusJoined},
			},
		},
	}
	order := plan.Order{
		ID:               "order-77",
		MemberAmount:     2,
		PackagePerMember: 60000,
	}
	q := pricing.CalculatePriceQuotation(detail, pricing.QuotationParams{
		PackagePerMember:     order.PackagePerMember,
		VATPercentage:        0.08,
		PCCFee:               func(int) int64 { return 60000 },
		ShouldIncludePITOFee: true,
	})
	return QuotationData{
		Order:       order,
		CompanyName: "Acme Ltd",
		Quotation:   q,
		Detail:      detail,
		GeneratedAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestRenderQuotationPDF(t *testing.T) {
	buf, err := RenderQuotationPDF(quotationFixture())
	require.NoError(t, err)
	require.NotZero(t, buf.Len())
	assert.Equal(t, "%PDF", buf.String()[:4])
}

func TestExportQuotationUploads(t *testing.T) {
	up := &fakeUploader{}
	e := &Exporter{Store: up}

	url, err := e.ExportQuotation(context.Background(), quotationFixture())
	require.NoError(t, err)

	assert.Equal(t, "https://files.example.com/quotations/order-77.pdf", url)
	assert.Equal(t, "quotations/order-77.pdf", up.key)
	assert.Equal(t, "application/pdf", up.contentType)
	assert.NotZero(t, up.size)
}

func TestFormatDateKey(t *testing.T) {
	// keys are epoch-millisecond strings
	assert.Equal(t, "Mon, 11 Mar 2024", formatDateKey("1710115200000"))
	assert.Equal(t, "Tue, 14 Nov 2023", formatDateKey("1700000000000"))
	// non-numeric keys pass through untouched
	assert.Equal(t, "not-a-date", formatDateKey("not-a-date"))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "172.800 VND", formatMoney(172800))
	assert.Equal(t, "0 VND", formatMoney(0))
	assert.Equal(t, "-1.500.000 VND", formatMoney(-1500000))
}
