package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustaklink/pustaklink/pkg/books"
	"github.com/pustaklink/pustaklink/pkg/session"
)

const studentJSON = `{"name":"Ananya Iyer","college":"VIT Vellore","phone":"+91 99999 11111","email":"ananya.iyer2023@vitstudent.ac.in"}`

func login(t *testing.T, svc *service) string {
	t.Helper()
	e := svc.newEcho()
	rec := doRequest(e, http.MethodPost, "/session", studentJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var st session.State
	decode(t, rec, &st)
	require.NotEmpty(t, st.ID)
	return st.ID
}

func TestSessionCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantCode   int
		wantDetail string
	}{
		{"ok", studentJSON, http.StatusCreated, ""},
		{
			"wrong domain",
			`{"name":"A","college":"VIT Vellore","phone":"1","email":"a@gmail.com"}`,
			http.StatusForbidden,
			"access not permitted: please use your student email ID ending with vitstudent.ac.in",
		},
		{
			"incomplete",
			`{"name":"","college":"VIT Vellore","phone":"1","email":"a@vitstudent.ac.in"}`,
			http.StatusBadRequest,
			"name, college, phone and email are all required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, e := newTestService(t)
			rec := doRequest(e, http.MethodPost, "/session", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusCreated {
				assert.Equal(t, tt.wantDetail, detail(t, rec))
				assert.Equal(t, 0, svc.Sessions.Len())
				return
			}
			var st session.State
			decode(t, rec, &st)
			assert.Equal(t, session.Home, st.View)
			require.NotNil(t, st.Profile)
			assert.Equal(t, "Ananya Iyer", st.Profile.Name)
			assert.Equal(t, books.DefaultCriteria(), st.Filter)
			assert.Equal(t, 1, svc.Sessions.Len())
		})
	}
}

func TestSessionViewAndFilter(t *testing.T) {
	svc, e := newTestService(t)
	sid := login(t, svc)

	rec := doRequest(e, http.MethodPut, "/session/"+sid+"/view", `{"view":"borrow"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var st session.State
	decode(t, rec, &st)
	assert.Equal(t, session.Borrow, st.View)

	rec = doRequest(e, http.MethodPut, "/session/"+sid+"/view", `{"view":"attic"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// contact without a selected book falls back to browsing
	rec = doRequest(e, http.MethodPut, "/session/"+sid+"/view", `{"view":"book-contact"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	assert.Equal(t, session.Borrow, st.View)

	rec = doRequest(e, http.MethodPut, "/session/"+sid+"/filter", `{"subject":"Computer Science","college":"VIT Vellore","condition":"good"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var fc books.FilterCriteria
	decode(t, rec, &fc)
	assert.Equal(t, "Computer Science", fc.Subject)

	rec = doRequest(e, http.MethodGet, "/session/"+sid+"/books", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []books.BookRecord
	decode(t, rec, &got)
	assert.Equal(t, "5,7", bookIDs(got))

	// an empty body resets to the defaults
	rec = doRequest(e, http.MethodPut, "/session/"+sid+"/filter", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &fc)
	assert.Equal(t, books.DefaultCriteria(), fc)

	rec = doRequest(e, http.MethodGet, "/session/"+sid+"/books", "")
	decode(t, rec, &got)
	assert.Len(t, got, 8)
}

func TestSessionNotFound(t *testing.T) {
	_, e := newTestService(t)
	for _, target := range []string{"/session/nope", "/session/nope/books", "/session/nope/cart", "/session/nope/wishlist"} {
		rec := doRequest(e, http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, "session not found", detail(t, rec))
	}
}

func TestWishlistRoutes(t *testing.T) {
	svc, e := newTestService(t)
	sid := login(t, svc)
	base := "/session/" + sid + "/wishlist"

	var res wishlistResult
	rec := doRequest(e, http.MethodPut, base+"/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	assert.Equal(t, wishlistResult{ID: "1", InWishlist: true, Changed: true}, res)

	// adding twice changes nothing
	rec = doRequest(e, http.MethodPut, base+"/1", "")
	decode(t, rec, &res)
	assert.False(t, res.Changed)

	rec = doRequest(e, http.MethodPost, base+"/3/toggle", "")
	decode(t, rec, &res)
	assert.True(t, res.InWishlist)

	rec = doRequest(e, http.MethodPut, base+"/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodGet, base+"/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ws session.WishlistStats
	decode(t, rec, &ws)
	// books 1 (14 days, Computer Science) and 3 (7 days, Physics)
	assert.Equal(t, session.WishlistStats{Count: 2, Subjects: 2, AverageBorrowDuration: 11}, ws)

	rec = doRequest(e, http.MethodPost, base+"/3/toggle", "")
	decode(t, rec, &res)
	assert.False(t, res.InWishlist)

	rec = doRequest(e, http.MethodDelete, base+"/1", "")
	decode(t, rec, &res)
	assert.True(t, res.Changed)

	rec = doRequest(e, http.MethodGet, base, "")
	var got []books.BookRecord
	decode(t, rec, &got)
	assert.Empty(t, got)
}

func TestCartAndPayment(t *testing.T) {
	svc, e := newTestService(t)
	sid := login(t, svc)
	base := "/session/" + sid

	rec := doRequest(e, http.MethodPost, base+"/payment", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "cart is empty", detail(t, rec))

	rec = doRequest(e, http.MethodPut, base+"/cart", `{"title":"no id"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var cart cartResult
	rec = doRequest(e, http.MethodPut, base+"/cart", `{"book_id":"b1","title":"Signals and Systems","sale_price":350,"mrp":700}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(e, http.MethodPut, base+"/cart", `{"book_id":"b2","title":"Control Systems","sale_price":200,"mrp":500}`)
	decode(t, rec, &cart)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, session.CartTotals{Items: 2, Subtotal: 550, DeliveryFee: 50, Total: 600}, cart.Totals)

	rec = doRequest(e, http.MethodDelete, base+"/cart/b2", "")
	decode(t, rec, &cart)
	assert.Equal(t, 400, cart.Totals.Total)

	rec = doRequest(e, http.MethodDelete, base+"/cart/b2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodPost, base+"/payment/complete", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(e, http.MethodPost, base+"/payment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var totals session.CartTotals
	decode(t, rec, &totals)
	assert.Equal(t, 400, totals.Total)

	rec = doRequest(e, http.MethodPost, base+"/payment/complete", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st session.State
	decode(t, rec, &st)
	assert.Equal(t, session.Home, st.View)
	assert.Empty(t, st.Cart)
}

func TestLendBorrowReturn(t *testing.T) {
	svc, e := newTestService(t)
	sid := login(t, svc)
	base := "/session/" + sid

	// lending adds the book to the catalog under the student's name
	rec := doRequest(e, http.MethodPost, base+"/lend", `{"subject":"Electronics","title":"Microelectronic Circuits","author":"Sedra, Smith","condition":"good","borrow_duration":7}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var lent books.BookRecord
	decode(t, rec, &lent)
	assert.Equal(t, "Ananya Iyer", lent.LenderName)
	assert.Equal(t, 9, svc.Books.NBooks())
	_, ok := svc.Books.Get(lent.ID)
	assert.True(t, ok)

	rec = doRequest(e, http.MethodPost, base+"/lend", `{"subject":"Electronics"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPost, base+"/borrow/confirm", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(e, http.MethodPost, base+"/borrow/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var br borrowResult
	decode(t, rec, &br)
	assert.Equal(t, "2", br.Book.ID)
	assert.Equal(t, "tel:+91 87654 32109", br.Contact.Tel)

	rec = doRequest(e, http.MethodGet, base, "")
	var st session.State
	decode(t, rec, &st)
	assert.Equal(t, session.BookContact, st.View)
	require.NotNil(t, st.Selected)

	rec = doRequest(e, http.MethodPost, base+"/borrow/confirm", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var bb session.BorrowedBook
	decode(t, rec, &bb)
	assert.Equal(t, testToday, bb.DateIssued)
	assert.Equal(t, books.Date{Year: 2025, Month: 9, Day: 4}, bb.ReturnDate)
	assert.Equal(t, session.Active, bb.Status)

	rec = doRequest(e, http.MethodGet, base+"/stats", "")
	var ps session.ProfileStats
	decode(t, rec, &ps)
	assert.Equal(t, session.ProfileStats{Shared: 1, Borrowed: 1, ActiveLends: 1, ActiveBorrows: 1, CommunityImpact: 2}, ps)

	rec = doRequest(e, http.MethodPost, base+"/return/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &ps)
	assert.Equal(t, 0, ps.ActiveBorrows)

	rec = doRequest(e, http.MethodPost, base+"/return/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// two weeks on, the lend is overdue
	svc.today = func() books.Date { return testToday.AddDays(14) }
	rec = doRequest(e, http.MethodGet, base, "")
	decode(t, rec, &st)
	require.Len(t, st.Lent, 1)
	assert.Equal(t, session.Overdue, st.Lent[0].Status)
}

func TestSessionDelete(t *testing.T) {
	svc, e := newTestService(t)
	sid := login(t, svc)

	rec := doRequest(e, http.MethodDelete, "/session/"+sid, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, svc.Sessions.Len())

	rec = doRequest(e, http.MethodGet, "/session/"+sid, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
