package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/club-portal/internal/auth"
	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/httpx"
	"github.com/ariefcatur/club-portal/internal/members"
	"github.com/ariefcatur/club-portal/internal/memstore"
	"github.com/ariefcatur/club-portal/internal/messages"
	"github.com/ariefcatur/club-portal/internal/orders"
	"github.com/ariefcatur/club-portal/internal/redisx"
	"github.com/ariefcatur/club-portal/internal/report"
	"github.com/ariefcatur/club-portal/internal/strains"
)

type published struct {
	topic string
	key   string
	env   orders.Envelope
}

type recorder struct {
	mu  sync.Mutex
	out []published
}

func (r *recorder) Publish(_ context.Context, topic string, key, value []byte, _ ...kafkago.Header) error {
	var env orders.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, published{topic: topic, key: string(key), env: env})
	return nil
}

func (r *recorder) all() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]published(nil), r.out...)
}

type idemMap struct {
	mu sync.Mutex
	m  map[string]string
}

func (i *idemMap) Begin(_ context.Context, memberID, key string) (bool, string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if v, ok := i.m[memberID+":"+key]; ok {
		return false, v, nil
	}
	i.m[memberID+":"+key] = ""
	return true, "", nil
}

// Complete and Abort fail on a finished context, like a redis call would.
func (i *idemMap) Complete(ctx context.Context, memberID, key, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.m[memberID+":"+key] = orderID
	return nil
}

func (i *idemMap) Abort(ctx context.Context, memberID, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.m, memberID+":"+key)
	return nil
}

type statusMap struct {
	mu sync.Mutex
	m  map[string]redisx.CachedStatus
}

func (s *statusMap) Put(_ context.Context, id string, v redisx.CachedStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = v
	return nil
}

func (s *statusMap) Get(_ context.Context, id string) (redisx.CachedStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[id]
	return v, ok, nil
}

type fixture struct {
	h      http.Handler
	st     *memstore.Store
	tokens *auth.Verifier
	events *recorder
	status *statusMap
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	st.PutMember(members.Member{ID: "staff-1", Email: "staff@club.test", FullName: "Sam Staff", Role: domain.RoleStaff})
	st.PutMember(members.Member{ID: "admin-1", Email: "admin@club.test", FullName: "Ada Admin", Role: domain.RoleAdmin})
	st.PutMember(members.Member{ID: "m-1", Email: "mia@club.test", FullName: "Mia", Role: domain.RoleMember,
		MonthlyLimit: domain.DefaultMonthlyLimit, Remaining: domain.Grams(30)})
	st.PutStrain(strains.Strain{ID: "p-1", Name: "Amnesia", Type: strains.TypeSativa, StockGrams: domain.Grams(10), IsVisible: true})

	f := &fixture{
		st:     st,
		tokens: auth.NewVerifier("test-secret"),
		events: &recorder{},
		status: &statusMap{m: map[string]redisx.CachedStatus{}},
	}
	memberSvc := members.NewService(st)
	orderSvc := orders.NewService(st, true)
	api := &httpx.API{
		Auth: &auth.Middleware{Verifier: f.tokens, Profiles: memberSvc},
		Orders: &httpx.OrdersHandler{
			Orders:   orderSvc,
			Producer: f.events,
			Idem:     &idemMap{m: map[string]string{}},
			Status:   f.status,
			Service:  "club-api-test",
		},
		Members:  &httpx.MembersHandler{Members: memberSvc, Orders: orderSvc},
		Strains:  &httpx.StrainsHandler{Strains: strains.NewService(st)},
		Messages: &httpx.MessagesHandler{Messages: messages.NewService(st)},
		Reports:  &httpx.ReportsHandler{Reports: &report.Service{Strains: st, Orders: st, LowStock: domain.Grams(20)}},
	}
	r := httpx.NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), httpx.RouterConfig{AllowedOrigins: []string{"*"}})
	api.Register(r)
	f.h = r
	return f
}

type call struct {
	method, path, as string
	body             any
	header           map[string]string
	ctx              context.Context
}

func (f *fixture) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		b, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.ctx != nil {
		req = req.WithContext(c.ctx)
	}
	if c.as != "" {
		tok, err := f.tokens.Issue(c.as, c.as+"@club.test", "", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type placeResp struct {
	Order      orders.Order    `json:"order"`
	Remaining  decimal.Decimal `json:"monthly_limit_remaining"`
	Idempotent bool            `json:"idempotent"`
}

func place(grams string) map[string]any {
	return map[string]any{"strain_id": "p-1", "quantity_grams": json.Number(grams)}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, call{method: http.MethodGet, path: "/api/me/orders"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decode[errResp](t, rec).Code)

	rec = f.do(t, call{method: http.MethodGet, path: "/api/me/orders", header: map[string]string{"Authorization": "Bearer junk"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFirstLoginCreatesProfile(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, call{method: http.MethodGet, path: "/api/me/profile", as: "newbie"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p struct {
		members.Member
		RecentOrders []orders.Order `json:"recent_orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "newbie", p.ID)
	assert.Equal(t, domain.RoleMember, p.Role)
	assert.True(t, p.Remaining.Equal(domain.Grams(30)))
	assert.NotNil(t, p.RecentOrders)
}

func TestRouteProtection(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		as, path string
		want     int
	}{
		{"m-1", "/api/staff/orders", http.StatusForbidden},
		{"m-1", "/api/admin/stats", http.StatusForbidden},
		{"staff-1", "/api/staff/orders", http.StatusOK},
		{"staff-1", "/api/admin/stats", http.StatusForbidden},
		{"admin-1", "/api/admin/stats", http.StatusOK},
		{"admin-1", "/api/staff/overview", http.StatusOK},
	}
	for _, tc := range cases {
		rec := f.do(t, call{method: http.MethodGet, path: tc.path, as: tc.as})
		assert.Equalf(t, tc.want, rec.Code, "%s %s: %s", tc.as, tc.path, rec.Body.String())
	}
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, call{method: http.MethodPost, path: "/api/me/orders", as: "m-1", body: place("4.5")})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[placeResp](t, rec)
	assert.Equal(t, orders.StatusPending, resp.Order.Status)
	assert.Equal(t, "m-1", resp.Order.MemberID)
	assert.True(t, resp.Remaining.Equal(domain.Grams(25.5)))

	ev := f.events.all()
	require.Len(t, ev, 1)
	assert.Equal(t, orders.TopicOrderPlaced, ev[0].topic)
	assert.Equal(t, resp.Order.ID, ev[0].key)
	assert.Equal(t, orders.EventOrderPlaced, ev[0].env.EventType)
	assert.Equal(t, resp.Order.ID, ev[0].env.CorrelationID)
}

func TestPlaceOrder_Rejections(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		grams string
		code  string
		msg   string
	}{
		{"0", "invalid_quantity", "positive"},
		{"0.001", "invalid_quantity", "decimal places"},
		{"7.5", "exceeds_order_ceiling", "7g"},
		{"6", "insufficient_stock", ""},
	}
	// leave 4g of stock
	rec := f.do(t, call{method: http.MethodPost, path: "/api/me/orders", as: "m-1", body: place("6")})
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, tc := range cases {
		rec := f.do(t, call{method: http.MethodPost, path: "/api/me/orders", as: "m-1", body: place(tc.grams)})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, tc.grams)
		e := decode[errResp](t, rec)
		assert.Equal(t, tc.code, e.Code)
		assert.Contains(t, e.Error, tc.msg)
	}
	e := decode[errResp](t, f.do(t, call{method: http.MethodPost, path: "/api/me/orders", as: "m-1", body: place("6")}))
	assert.Equal(t, "only 4g of Amnesia available in stock", e.Error)

	rec = f.do(t, call{method: http.MethodPost, path: "/api/me/orders", as: "m-1", body: map[string]any{"strain_id": "nope", "quantity_grams": 1}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, call{method: http.MethodPost, path: "/api/me/orders", as: "m-1", body: map[string]any{"product": "p-1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder_Idempotent(t *testing.T) {
	f := newFixture(t)
	c := call{method: http.MethodPost, path: "/api/me/orders", as: "m-1", body: place("2"),
		header: map[string]string{"Idempotency-Key": "k-1"}}

	first := f.do(t, c)
	require.Equal(t, http.StatusCreated, first.Code)
	second := f.do(t, c)
	require.Equal(t, http.StatusOK, second.Code)

	a, b := decode[placeResp](t, first), decode[placeResp](t, second)
	assert.Equal(t, a.Order.ID, b.Order.ID)
	assert.True(t, b.Idempotent)
	assert.True(t, b.Remaining.Equal(domain.Grams(28)))
	assert.Len(t, f.events.all(), 1)
}

func TestPlaceOrder_IdempotencyKeySettledAfterDeadline(t *testing.T) {
	f := newFixture(t)
	gone, cancel := context.WithCancel(context.Background())
	cancel()

	rejected := call{method: http.MethodPost, path: "/api/me/orders", as: "m-1", body: place("8"),
		header: map[string]string{"Idempotency-Key": "k-abort"}, ctx: gone}
	require.Equal(t, http.StatusUnprocessableEntity, f.do(t, rejected).Code)

	retry := rejected
	retry.body, retry.ctx = place("2"), nil
	rec := f.do(t, retry)
	assert.Equal(t, http.StatusCreated, rec.Code, "released key is claimable again: %s", rec.Body.String())

	// the deadline also sinks the placement transaction
	timedOut := call{method: http.MethodPost, path: "/api/me/orders", as: "m-1", body: place("1"),
		header: map[string]string{"Idempotency-Key": "k-timeout"}, ctx: gone}
	require.Equal(t, http.StatusServiceUnavailable, f.do(t, timedOut).Code)

	timedOut.ctx = nil
	rec = f.do(t, timedOut)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.False(t, decode[placeResp](t, rec).Idempotent)
}

func TestPlaceOrder_StoreDown(t *testing.T) {
	f := newFixture(t)
	f.st.Fail = func(op string) error {
		if op == "insert_order" {
			return errors.New("connection reset by peer")
		}
		return nil
	}

	rec := f.do(t, call{method: http.MethodPost, path: "/api/me/orders", as: "m-1", body: place("1")})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	e := decode[errResp](t, rec)
	assert.Equal(t, "transaction_failed", e.Code)
	assert.Contains(t, e.Error, "try again")
	assert.NotContains(t, e.Error, "connection reset")
}

func TestStatusChange(t *testing.T) {
	f := newFixture(t)
	o := decode[placeResp](t, f.do(t, call{method: http.MethodPost, path: "/api/me/orders", as: "m-1", body: place("5")})).Order
	path := "/api/staff/orders/" + o.ID + "/status"

	rec := f.do(t, call{method: http.MethodPatch, path: path, as: "staff-1", body: map[string]string{"status": "cancelled"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ch := decode[orders.Change](t, rec)
	assert.True(t, ch.Refunded.Equal(domain.Grams(5)))

	rem := decode[map[string]decimal.Decimal](t, f.do(t, call{method: http.MethodGet, path: "/api/me/allowance", as: "m-1"}))
	assert.True(t, rem["monthly_limit_remaining"].Equal(domain.Grams(30)))

	rec = f.do(t, call{method: http.MethodPatch, path: path, as: "staff-1", body: map[string]string{"status": "ready"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_status_transition", decode[errResp](t, rec).Code)

	ev := f.events.all()
	require.Len(t, ev, 2)
	assert.Equal(t, orders.TopicOrderStatusChanged, ev[1].topic)
	p, err := json.Marshal(ev[1].env.Payload)
	require.NoError(t, err)
	assert.Contains(t, string(p), `"to":"cancelled"`)

	cached, ok, err := f.status.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cancelled", cached.Status)

	rec = f.do(t, call{method: http.MethodGet, path: "/api/me/orders/" + o.ID + "/status", as: "m-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[redisx.CachedStatus](t, rec).Status)

	rec = f.do(t, call{method: http.MethodGet, path: "/api/me/orders/" + o.ID, as: "intruder"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessagingRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, call{method: http.MethodPost, path: "/api/me/messages", as: "m-1",
		body: map[string]string{"to_id": "staff-1", "subject": "Hi", "content": "Is Amnesia back?"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	msg := decode[messages.Message](t, rec)

	n := decode[map[string]int](t, f.do(t, call{method: http.MethodGet, path: "/api/me/messages/unread", as: "staff-1"}))
	assert.Equal(t, 1, n["unread"])

	rec = f.do(t, call{method: http.MethodPost, path: "/api/me/messages/" + msg.ID + "/read", as: "m-1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, call{method: http.MethodPost, path: "/api/me/messages/" + msg.ID + "/read", as: "staff-1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	conv := decode[[]messages.Message](t, f.do(t, call{method: http.MethodGet, path: "/api/staff/conversations/m-1", as: "staff-1"}))
	assert.Len(t, conv, 1)
}

func TestStaffCatalogueAndReports(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, call{method: http.MethodPost, path: "/api/staff/strains", as: "staff-1",
		body: map[string]any{"name": "Bubba", "type": "indica", "stock_grams": 3}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	s := decode[strains.Strain](t, rec)

	list := decode[[]strains.Strain](t, f.do(t, call{method: http.MethodGet, path: "/api/me/strains", as: "m-1"}))
	assert.Len(t, list, 1, "new strain is hidden by default")

	rec = f.do(t, call{method: http.MethodPatch, path: "/api/staff/strains/" + s.ID, as: "staff-1", body: map[string]any{"is_visible": true}})
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[[]strains.Strain](t, f.do(t, call{method: http.MethodGet, path: "/api/me/strains", as: "m-1"}))
	assert.Len(t, list, 2)

	limit := decode[map[string]decimal.Decimal](t, f.do(t, call{method: http.MethodGet, path: "/api/me/strains/" + s.ID + "/limit", as: "m-1"}))
	assert.True(t, limit["max_grams"].Equal(domain.Grams(3)))

	ov := decode[report.Overview](t, f.do(t, call{method: http.MethodGet, path: "/api/staff/overview", as: "staff-1"}))
	assert.Len(t, ov.LowStock, 2)

	rec = f.do(t, call{method: http.MethodGet, path: "/api/staff/reports/inventory.xlsx", as: "staff-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, rec.Body.Len())
}

func TestAdminMemberManagement(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, call{method: http.MethodPut, path: "/api/admin/members/m-1/allowance", as: "admin-1",
		body: map[string]any{"monthly_limit_remaining": 12}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[members.Member](t, rec).Remaining.Equal(domain.Grams(12)))

	rec = f.do(t, call{method: http.MethodPatch, path: "/api/admin/members/m-1/role", as: "admin-1", body: map[string]string{"role": "admin"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, call{method: http.MethodGet, path: "/api/staff/members/search?q=mia", as: "staff-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]members.Member](t, rec), 1)

	rec = f.do(t, call{method: http.MethodDelete, path: "/api/admin/members/m-1", as: "admin-1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, call{method: http.MethodGet, path: "/api/staff/members/m-1", as: "staff-1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
