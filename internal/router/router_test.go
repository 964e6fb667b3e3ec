package router

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/config"
	"github.com/iliyamo/tour-booking-api/internal/email"
	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/repository/memory"
	"github.com/iliyamo/tour-booking-api/internal/service"
)

type outbox struct {
	mu   sync.Mutex
	sent []email.Message
}

func (o *outbox) Send(_ context.Context, m email.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m)
	return nil
}

type testServer struct {
	e     *echo.Echo
	store *memory.Store
	tours *service.TourService
	users *service.UserService
	mail  *outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	mail := &outbox{}
	reviews := service.NewReviewService(store.Reviews(), store.Tours())
	ts := &testServer{
		store: store,
		tours: service.NewTourService(store.Tours(), store.Reviews()),
		users: service.NewUserService(store.Users(), reviews, 4),
		mail:  mail,
	}
	ts.e = New(Deps{
		CookieDays: 1,
		RateLimit:  config.RateLimitConfig{Enabled: false},
		Cache:      config.CacheConfig{Enabled: false},
		Auth: service.NewAuthService(store.Users(), store.Resets(), mail, service.AuthConfig{
			Secret:     "test-secret",
			TokenTTL:   time.Hour,
			ResetTTL:   10 * time.Minute,
			BcryptCost: 4,
		}),
		Tours:   ts.tours,
		Users:   ts.users,
		Reviews: reviews,
	})
	return ts
}

type response struct {
	Code    int
	Cookies []*http.Cookie
	Body    map[string]any
}

func (r response) data(key string) any {
	d, _ := r.Body["data"].(map[string]any)
	return d[key]
}

func (r response) message() string {
	s, _ := r.Body["message"].(string)
	return s
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	res := response{Code: rec.Code, Cookies: rec.Result().Cookies()}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &res.Body); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return res
}

func (ts *testServer) signup(t *testing.T, name, addr string) string {
	t.Helper()
	res := ts.do(t, http.MethodPost, "/api/v1/users/signup", "", map[string]string{
		"name": name, "email": addr, "password": "secret123", "passwordConfirm": "secret123",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("signup %s: %d %v", addr, res.Code, res.Body)
	}
	return res.Body["token"].(string)
}

// staff creates a user with role directly and logs them in.
func (ts *testServer) staff(t *testing.T, role, addr string) string {
	t.Helper()
	_, err := ts.users.Create(context.Background(), model.UserInput{
		Name: role, Email: addr, Role: role, Password: "secret123", PasswordConfirm: "secret123",
	})
	if err != nil {
		t.Fatal(err)
	}
	res := ts.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": addr, "password": "secret123"})
	if res.Code != http.StatusOK {
		t.Fatalf("login %s: %d %v", addr, res.Code, res.Body)
	}
	return res.Body["token"].(string)
}

func (ts *testServer) seedTours(t *testing.T, n int) []uint64 {
	t.Helper()
	ids := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		tour, err := ts.tours.Create(context.Background(), model.TourInput{
			Name:         fmt.Sprintf("Test Tour Number %02d", i),
			Duration:     1 + i%9,
			MaxGroupSize: 10,
			Difficulty:   []string{"easy", "medium", "difficult"}[i%3],
			Price:        float64(100 + (i*37)%500),
			Summary:      "summary",
			ImageCover:   "cover.jpg",
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, tour.ID)
	}
	return ids
}

func TestSignupScenario(t *testing.T) {
	ts := newTestServer(t)
	res := ts.do(t, http.MethodPost, "/api/v1/users/signup", "", map[string]string{
		"name": "A", "email": "a@x.com", "password": "secret123", "passwordConfirm": "secret123", "role": "admin",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("status = %d %v", res.Code, res.Body)
	}
	if tok, _ := res.Body["token"].(string); tok == "" {
		t.Error("missing token")
	}
	user, _ := res.data("user").(map[string]any)
	if user == nil {
		t.Fatalf("missing user: %v", res.Body)
	}
	for _, k := range []string{"password", "passwordHash", "passwordConfirm", "PasswordHash"} {
		if _, ok := user[k]; ok {
			t.Errorf("user exposes %s", k)
		}
	}
	if user["role"] != model.RoleUser {
		t.Errorf("role = %v, signup must not grant roles", user["role"])
	}
	var cookie *http.Cookie
	for _, c := range res.Cookies {
		if c.Name == "jwt" {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("session cookie = %+v", cookie)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "A", "a@x.com")
	res := ts.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": "a@x.com", "password": "wrong-password"})
	if res.Code != http.StatusUnauthorized || res.message() != service.MsgBadCredentials || res.Body["status"] != "fail" {
		t.Errorf("got %d %v", res.Code, res.Body)
	}
	res = ts.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": "nobody@x.com", "password": "secret123"})
	if res.message() != service.MsgBadCredentials {
		t.Errorf("unknown email must look like a wrong password: %v", res.Body)
	}
	res = ts.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": "a@x.com"})
	if res.Code != http.StatusBadRequest || res.message() != service.MsgMissingCredentials {
		t.Errorf("missing password: %d %v", res.Code, res.Body)
	}
}

func TestDuplicateReview(t *testing.T) {
	ts := newTestServer(t)
	tourID := ts.seedTours(t, 1)[0]
	tok := ts.signup(t, "A", "a@x.com")
	path := fmt.Sprintf("/api/v1/tours/%d/reviews", tourID)

	first := ts.do(t, http.MethodPost, path, tok, map[string]any{"review": "Lovely", "rating": 4})
	if first.Code != http.StatusCreated {
		t.Fatalf("first review: %d %v", first.Code, first.Body)
	}
	second := ts.do(t, http.MethodPost, path, tok, map[string]any{"review": "Again", "rating": 1})
	if second.Code != http.StatusBadRequest || !strings.HasPrefix(second.message(), "Duplicate field value:") {
		t.Fatalf("second review: %d %v", second.Code, second.Body)
	}

	res := ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tours/%d", tourID), "", nil)
	tour, _ := res.data("tour").(map[string]any)
	if tour["ratingsQuantity"] != 1.0 || tour["ratingsAverage"] != 4.0 {
		t.Errorf("ratings = %v / %v", tour["ratingsQuantity"], tour["ratingsAverage"])
	}
	if reviews, _ := tour["reviews"].([]any); len(reviews) != 1 {
		t.Errorf("reviews = %v", tour["reviews"])
	}

	list := ts.do(t, http.MethodGet, path, tok, nil)
	if list.Body["results"] != 1.0 {
		t.Errorf("nested list = %v", list.Body)
	}
}

func TestDeleteUserResetsTourRatings(t *testing.T) {
	ts := newTestServer(t)
	tourID := ts.seedTours(t, 1)[0]
	admin := ts.staff(t, "admin", "root@x.com")
	tok := ts.signup(t, "Critic", "critic@x.com")

	review := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tours/%d/reviews", tourID), tok, map[string]any{"review": "Too long", "rating": 2})
	if review.Code != http.StatusCreated {
		t.Fatalf("review: %d %v", review.Code, review.Body)
	}
	me := ts.do(t, http.MethodGet, "/api/v1/users/me", tok, nil)
	user, _ := me.data("user").(map[string]any)
	userID, _ := user["id"].(float64)

	if res := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", uint64(userID)), admin, nil); res.Code != http.StatusNoContent {
		t.Fatalf("delete user: %d %v", res.Code, res.Body)
	}
	res := ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tours/%d", tourID), "", nil)
	tour, _ := res.data("tour").(map[string]any)
	if tour["ratingsQuantity"] != 0.0 || tour["ratingsAverage"] != 4.5 {
		t.Errorf("ratings = %v / %v", tour["ratingsQuantity"], tour["ratingsAverage"])
	}
}

func TestGeoRoutesRejectNonFinite(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTours(t, 1)
	tests := []struct {
		path string
		msg  string
	}{
		{"/api/v1/tours/distances/NaN,0/unit/km", "Please provide latitude and longitude in the format lat,lng."},
		{"/api/v1/tours/tours-within/100/center/0,Inf/unit/mi", "Please provide latitude and longitude in the format lat,lng."},
		{"/api/v1/tours/tours-within/NaN/center/34.1,-118.1/unit/mi", "Invalid distance: NaN"},
		{"/api/v1/tours?price[lt]=NaN", "Invalid price: NaN"},
	}
	for _, tt := range tests {
		res := ts.do(t, http.MethodGet, tt.path, "", nil)
		if res.Code != http.StatusBadRequest || res.message() != tt.msg {
			t.Errorf("%s: %d %v", tt.path, res.Code, res.Body)
		}
	}
}

func TestMonthlyPlanScenario(t *testing.T) {
	ts := newTestServer(t)
	march := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 5, 9, 0, 0, 0, time.UTC)
	for i, dates := range [][]time.Time{{march}, {march}, {march, april}} {
		_, err := ts.tours.Create(context.Background(), model.TourInput{
			Name: fmt.Sprintf("Seasonal Tour %02d", i), Duration: 3, MaxGroupSize: 5, Difficulty: "easy",
			Price: 100, Summary: "s", ImageCover: "c.jpg", StartDates: dates,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	user := ts.signup(t, "U", "u@x.com")
	if res := ts.do(t, http.MethodGet, "/api/v1/tours/monthly-plan/2024", user, nil); res.Code != http.StatusForbidden {
		t.Errorf("plain user: %d", res.Code)
	}

	guide := ts.staff(t, model.RoleGuide, "g@x.com")
	res := ts.do(t, http.MethodGet, "/api/v1/tours/monthly-plan/2024", guide, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("%d %v", res.Code, res.Body)
	}
	plan, _ := res.data("plan").([]any)
	if len(plan) != 2 {
		t.Fatalf("plan = %v", plan)
	}
	first := plan[0].(map[string]any)
	if first["month"] != 3.0 || first["numOfTours"] != 3.0 || len(first["tours"].([]any)) != 3 {
		t.Errorf("first = %v", first)
	}
	if plan[1].(map[string]any)["month"] != 4.0 {
		t.Errorf("second = %v", plan[1])
	}

	res = ts.do(t, http.MethodGet, "/api/v1/tours/monthly-plan/twenty", guide, nil)
	if res.Code != http.StatusBadRequest || res.message() != "Invalid year: twenty" {
		t.Errorf("bad year: %d %v", res.Code, res.Body)
	}
}

func TestTokenIssuedBeforePasswordChange(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.signup(t, "A", "a@x.com")
	if res := ts.do(t, http.MethodGet, "/api/v1/users/me", tok, nil); res.Code != http.StatusOK {
		t.Fatalf("me: %d %v", res.Code, res.Body)
	}
	u, err := ts.store.Users().GetByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if err := ts.store.Users().SetPassword(context.Background(), u.ID, u.PasswordHash, time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	res := ts.do(t, http.MethodGet, "/api/v1/users/me", tok, nil)
	if res.Code != http.StatusUnauthorized || res.message() != service.MsgPasswordChanged {
		t.Errorf("got %d %v", res.Code, res.Body)
	}
}

func TestPageBeyondEnd(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTours(t, 10)
	for _, path := range []string{
		"/api/v1/tours?page=50&limit=100",
		"/api/v1/tours?page=9223372036854775807",
		"/api/v1/tours?page=9223372036854775807&limit=1000",
	} {
		res := ts.do(t, http.MethodGet, path, "", nil)
		if res.Code != http.StatusNotFound || res.message() != "This page does not exist" {
			t.Errorf("%s: got %d %v", path, res.Code, res.Body)
		}
	}
}

func prices(t *testing.T, res response) []float64 {
	t.Helper()
	tours, _ := res.data("tours").([]any)
	out := make([]float64, 0, len(tours))
	for _, x := range tours {
		out = append(out, x.(map[string]any)["price"].(float64))
	}
	return out
}

func TestListSortFieldsAndPages(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTours(t, 25)

	res := ts.do(t, http.MethodGet, "/api/v1/tours?sort=-price", "", nil)
	ps := prices(t, res)
	if len(ps) != 25 {
		t.Fatalf("results = %d", len(ps))
	}
	for i := 1; i < len(ps); i++ {
		if ps[i] > ps[i-1] {
			t.Fatalf("not non-increasing at %d: %v", i, ps)
		}
	}

	res = ts.do(t, http.MethodGet, "/api/v1/tours?fields=name,price", "", nil)
	for _, x := range res.data("tours").([]any) {
		doc := x.(map[string]any)
		if len(doc) != 3 || doc["id"] == nil || doc["name"] == nil || doc["price"] == nil {
			t.Fatalf("projected doc = %v", doc)
		}
	}

	ids := func(path string) []float64 {
		var out []float64
		for _, x := range ts.do(t, http.MethodGet, path, "", nil).data("tours").([]any) {
			out = append(out, x.(map[string]any)["id"].(float64))
		}
		return out
	}
	p1 := ids("/api/v1/tours?sort=price&limit=10&page=1")
	p2 := ids("/api/v1/tours?sort=price&limit=10&page=2")
	both := ids("/api/v1/tours?sort=price&limit=20&page=1")
	if len(p1) != 10 || len(p2) != 10 {
		t.Fatalf("page sizes %d %d", len(p1), len(p2))
	}
	for i, id := range append(p1, p2...) {
		if both[i] != id {
			t.Fatalf("pages are not contiguous at %d", i)
		}
	}

	res = ts.do(t, http.MethodGet, "/api/v1/tours?price[regex]=1", "", nil)
	if res.Code != http.StatusBadRequest {
		t.Errorf("unknown operator: %d", res.Code)
	}
	res = ts.do(t, http.MethodGet, "/api/v1/tours?price[lt]=cheap", "", nil)
	if res.Code != http.StatusBadRequest || res.message() != "Invalid price: cheap" {
		t.Errorf("cast error: %d %v", res.Code, res.Body)
	}
}

func TestTourCRUDPermissions(t *testing.T) {
	ts := newTestServer(t)
	user := ts.signup(t, "U", "u@x.com")
	admin := ts.staff(t, model.RoleAdmin, "admin@x.com")
	body := map[string]any{
		"name": "The Forest Hiker", "duration": 5, "maxGroupSize": 25, "difficulty": "easy",
		"price": 397, "summary": "Breathtaking hike", "imageCover": "tour-1-cover.jpg",
	}

	if res := ts.do(t, http.MethodPost, "/api/v1/tours", "", body); res.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create: %d", res.Code)
	}
	res := ts.do(t, http.MethodPost, "/api/v1/tours", user, body)
	if res.Code != http.StatusForbidden || res.message() != "You do not have permission to perform this action" {
		t.Errorf("user create: %d %v", res.Code, res.Body)
	}
	res = ts.do(t, http.MethodPost, "/api/v1/tours", admin, body)
	if res.Code != http.StatusCreated {
		t.Fatalf("admin create: %d %v", res.Code, res.Body)
	}
	id := uint64(res.data("tour").(map[string]any)["id"].(float64))
	path := fmt.Sprintf("/api/v1/tours/%d", id)

	if res := ts.do(t, http.MethodPost, "/api/v1/tours", admin, body); res.Code != http.StatusBadRequest {
		t.Errorf("duplicate name: %d", res.Code)
	}
	res = ts.do(t, http.MethodPatch, path, admin, map[string]any{"priceDiscount": 500})
	if res.Code != http.StatusBadRequest || !strings.Contains(res.message(), "should be below regular price") {
		t.Errorf("discount: %d %v", res.Code, res.Body)
	}
	res = ts.do(t, http.MethodPatch, path, admin, map[string]any{"price": 450, "ratingsAverage": 1})
	tour, _ := res.data("tour").(map[string]any)
	if res.Code != http.StatusOK || tour["price"] != 450.0 || tour["ratingsAverage"] != 4.5 {
		t.Errorf("update: %d %v", res.Code, res.Body)
	}

	if res := ts.do(t, http.MethodDelete, path, admin, nil); res.Code != http.StatusNoContent {
		t.Errorf("first delete: %d", res.Code)
	}
	for i := 0; i < 2; i++ {
		res := ts.do(t, http.MethodDelete, path, admin, nil)
		if res.Code != http.StatusNotFound || res.message() != "No tour found with that ID" {
			t.Errorf("repeat delete: %d %v", res.Code, res.Body)
		}
	}
}

func TestErrorShapes(t *testing.T) {
	ts := newTestServer(t)
	res := ts.do(t, http.MethodGet, "/api/v1/tours/abc", "", nil)
	if res.Code != http.StatusBadRequest || res.message() != "Invalid id: abc" {
		t.Errorf("bad id: %d %v", res.Code, res.Body)
	}
	res = ts.do(t, http.MethodGet, "/api/v1/nowhere", "", nil)
	if res.Code != http.StatusNotFound || res.message() != "Can't find /api/v1/nowhere on this server!" {
		t.Errorf("unknown route: %d %v", res.Code, res.Body)
	}
	res = ts.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	if res.Code != http.StatusUnauthorized || res.message() != "You are not logged in! Please log in to get access." {
		t.Errorf("no token: %d %v", res.Code, res.Body)
	}
	res = ts.do(t, http.MethodGet, "/api/v1/users/me", "not.a.token", nil)
	if res.Code != http.StatusUnauthorized || res.message() != service.MsgInvalidToken {
		t.Errorf("garbage token: %d %v", res.Code, res.Body)
	}
	big := map[string]string{"name": strings.Repeat("x", 20<<10)}
	res = ts.do(t, http.MethodPost, "/api/v1/users/signup", "", big)
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body: %d", res.Code)
	}
}

func TestSelfService(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.signup(t, "Ann", "ann@x.com")

	res := ts.do(t, http.MethodPatch, "/api/v1/users/updateMe", tok, map[string]string{"password": "newsecret1"})
	if res.Code != http.StatusBadRequest || res.message() != "This route is not for password updates. Please use /updateMyPassword." {
		t.Errorf("password on updateMe: %d %v", res.Code, res.Body)
	}
	res = ts.do(t, http.MethodPatch, "/api/v1/users/updateMe", tok, map[string]string{"name": "Annie", "role": "admin"})
	user, _ := res.data("user").(map[string]any)
	if res.Code != http.StatusOK || user["name"] != "Annie" || user["role"] != model.RoleUser {
		t.Errorf("updateMe: %d %v", res.Code, res.Body)
	}

	res = ts.do(t, http.MethodPatch, "/api/v1/users/updateMyPassword", tok, map[string]string{
		"passwordCurrent": "wrong", "password": "newsecret1", "passwordConfirm": "newsecret1",
	})
	if res.Code != http.StatusUnauthorized || res.message() != service.MsgWrongPassword {
		t.Errorf("wrong current: %d %v", res.Code, res.Body)
	}

	if res := ts.do(t, http.MethodDelete, "/api/v1/users/deleteMe", tok, nil); res.Code != http.StatusNoContent {
		t.Errorf("deleteMe: %d", res.Code)
	}
	res = ts.do(t, http.MethodGet, "/api/v1/users/me", tok, nil)
	if res.Code != http.StatusUnauthorized || res.message() != service.MsgUserGone {
		t.Errorf("deactivated user: %d %v", res.Code, res.Body)
	}
}

func TestForgotAndResetOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "A", "a@x.com")

	res := ts.do(t, http.MethodPost, "/api/v1/users/forgotPassword", "", map[string]string{"email": "nobody@x.com"})
	if res.Code != http.StatusNotFound {
		t.Errorf("unknown email: %d", res.Code)
	}
	res = ts.do(t, http.MethodPost, "/api/v1/users/forgotPassword", "", map[string]string{"email": "A@X.com"})
	if res.Code != http.StatusOK || res.message() != "Token sent to email!" {
		t.Fatalf("forgot: %d %v", res.Code, res.Body)
	}
	if len(ts.mail.sent) != 1 {
		t.Fatalf("sent %d mails", len(ts.mail.sent))
	}
	body := ts.mail.sent[0].Body
	i := strings.Index(body, "/api/v1/users/resetPassword/")
	if i < 0 {
		t.Fatalf("no reset link in %q", body)
	}
	link := strings.TrimSuffix(strings.Fields(body[i:])[0], ".")

	creds := map[string]string{"password": "brandnew1", "passwordConfirm": "brandnew1"}
	res = ts.do(t, http.MethodPatch, link, "", creds)
	if res.Code != http.StatusOK || res.Body["token"] == nil {
		t.Fatalf("reset: %d %v", res.Code, res.Body)
	}
	res = ts.do(t, http.MethodPatch, link, "", creds)
	if res.Code != http.StatusBadRequest || res.message() != service.MsgResetInvalid {
		t.Errorf("reused token: %d %v", res.Code, res.Body)
	}
	res = ts.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": "a@x.com", "password": "brandnew1"})
	if res.Code != http.StatusOK {
		t.Errorf("login with new password: %d", res.Code)
	}
}

func TestLogoutCookie(t *testing.T) {
	ts := newTestServer(t)
	res := ts.do(t, http.MethodGet, "/api/v1/users/logout", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("logout: %d", res.Code)
	}
	for _, c := range res.Cookies {
		if c.Name == "jwt" && c.Value == "loggedout" {
			return
		}
	}
	t.Errorf("cookie not overwritten: %v", res.Cookies)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestTopFiveCheapAlias(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTours(t, 8)
	res := ts.do(t, http.MethodGet, "/api/v1/tours/top-5-cheap?limit=50", "", nil)
	if res.Code != http.StatusOK || res.Body["results"] != 5.0 {
		t.Fatalf("%d %v", res.Code, res.Body)
	}
	allowed := map[string]bool{"id": true, "name": true, "price": true, "ratingsAverage": true, "summary": true, "difficulty": true}
	ps := prices(t, res)
	for i, x := range res.data("tours").([]any) {
		for k := range x.(map[string]any) {
			if !allowed[k] {
				t.Errorf("doc %d has %q", i, k)
			}
		}
		if i > 0 && ps[i] < ps[i-1] {
			t.Errorf("equal ratings must be ordered by price: %v", ps)
		}
	}
}
