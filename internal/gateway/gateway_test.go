package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TvogInc/ConnectHub/pkg/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "anon-key", WithTokenSource(func() string { return "session-token" }))
	return client, srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestFetchAcceptedConnectionsQuery(t *testing.T) {
	now := time.Now().UTC()
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/connections" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer session-token" {
			t.Errorf("unexpected authorization %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("unexpected apikey %q", got)
		}
		q := r.URL.Query()
		if got := q.Get("status"); got != "eq.accepted" {
			t.Errorf("status filter = %q", got)
		}
		if got := q.Get("or"); got != "(requester_id.eq.u1,receiver_id.eq.u1)" {
			t.Errorf("or filter = %q", got)
		}
		if got := q.Get("order"); got != "updated_at.desc" {
			t.Errorf("order = %q", got)
		}
		if !strings.Contains(q.Get("select"), "connections_requester_id_fkey") {
			t.Errorf("select does not join requester: %q", q.Get("select"))
		}
		writeJSON(t, w, []domain.Connection{{
			ID: "c1", RequesterID: "u1", ReceiverID: "u2",
			Status: domain.ConnectionAccepted, UpdatedAt: now,
			Receiver: &domain.UserProfile{ID: "u2", Username: "bob"},
		}})
	})

	conns, err := client.FetchAcceptedConnections(context.Background(), "u1")
	if err != nil {
		t.Fatalf("fetch accepted: %v", err)
	}
	if len(conns) != 1 || conns[0].ID != "c1" {
		t.Fatalf("unexpected connections %+v", conns)
	}
	if other := conns[0].Other("u1"); other == nil || other.Username != "bob" {
		t.Fatalf("other endpoint = %+v", other)
	}
}

func TestFetchPendingConnectionsQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("receiver_id"); got != "eq.u1" {
			t.Errorf("receiver filter = %q", got)
		}
		if got := q.Get("status"); got != "eq.pending" {
			t.Errorf("status filter = %q", got)
		}
		if got := q.Get("order"); got != "created_at.desc" {
			t.Errorf("order = %q", got)
		}
		writeJSON(t, w, []domain.Connection{})
	})

	if _, err := client.FetchPendingConnections(context.Background(), "u1"); err != nil {
		t.Fatalf("fetch pending: %v", err)
	}
}

func TestRespondToConnectionOnlyTouchesPendingRows(t *testing.T) {
	var method string
	var query map[string][]string
	var body map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		query = r.URL.Query()
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.RespondToConnection(context.Background(), "c9", true); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if method != http.MethodPatch {
		t.Errorf("method = %s", method)
	}
	if got := query["id"]; len(got) != 1 || got[0] != "eq.c9" {
		t.Errorf("id filter = %v", got)
	}
	if got := query["status"]; len(got) != 1 || got[0] != "eq.pending" {
		t.Errorf("pending restriction missing, status filter = %v", got)
	}
	if body["status"] != "accepted" {
		t.Errorf("body status = %v", body["status"])
	}
	if _, ok := body["updated_at"]; !ok {
		t.Errorf("updated_at not stamped: %v", body)
	}
}

func TestRespondToConnectionDecline(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})
	if err := client.RespondToConnection(context.Background(), "c9", false); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if body["status"] != "blocked" {
		t.Errorf("body status = %v", body["status"])
	}
}

func TestSearchProfilesQuotesPattern(t *testing.T) {
	cases := []struct {
		name   string
		search string
		or     string
	}{
		{"wildcard stays literal", "100%", `(username.ilike."%100\\%%",email.ilike."%100\\%%")`},
		{"comma survives the or grouping", "a,b", `(username.ilike."%a,b%",email.ilike."%a,b%")`},
		{"parens survive the or grouping", "bob (work)", `(username.ilike."%bob (work)%",email.ilike."%bob (work)%")`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if got := q.Get("limit"); got != "10" {
					t.Errorf("limit = %q", got)
				}
				if got := q.Get("or"); got != tc.or {
					t.Errorf("or filter = %q, want %q", got, tc.or)
				}
				writeJSON(t, w, []domain.UserProfile{{ID: "u2", Username: "ann"}})
			})

			profiles, err := client.SearchProfiles(context.Background(), tc.search)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(profiles) != 1 {
				t.Fatalf("unexpected profiles %+v", profiles)
			}
		})
	}
}

func TestFetchProfileNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		writeJSON(t, w, map[string]string{"code": "PGRST116", "message": "no rows"})
	})

	_, ok, err := client.FetchProfile(context.Background(), "missing")
	if err != nil {
		t.Fatalf("not-found must not error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for absent row")
	}
}

func TestFetchDirectMessagesQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("group_id"); got != "is.null" {
			t.Errorf("group filter = %q", got)
		}
		want := "(and(sender_id.eq.u1,receiver_id.eq.u2),and(sender_id.eq.u2,receiver_id.eq.u1))"
		if got := q.Get("or"); got != want {
			t.Errorf("or filter = %q", got)
		}
		if got := q.Get("order"); got != "created_at.asc" {
			t.Errorf("order = %q", got)
		}
		base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
		writeJSON(t, w, []domain.Message{
			{ID: "m1", SenderID: "u1", ReceiverID: "u2", Content: "hello", CreatedAt: base},
			{ID: "m2", SenderID: "u2", ReceiverID: "u1", Content: "hi", CreatedAt: base.Add(time.Minute)},
		})
	})

	messages, err := client.FetchDirectMessages(context.Background(), "u1", "u2")
	if err != nil {
		t.Fatalf("fetch direct: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("unexpected messages %+v", messages)
	}
	for i, msg := range messages {
		if !msg.IsDirect() {
			t.Errorf("message %d has a group id", i)
		}
		if i > 0 && messages[i].CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Errorf("messages out of order at %d", i)
		}
	}
}

func TestFetchGroupMessagesQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("group_id"); got != "eq.g1" {
			t.Errorf("group filter = %q", got)
		}
		if got := q.Get("order"); got != "created_at.asc" {
			t.Errorf("order = %q", got)
		}
		writeJSON(t, w, []domain.Message{{ID: "m1", SenderID: "u1", GroupID: "g1", Content: "yo"}})
	})

	messages, err := client.FetchGroupMessages(context.Background(), "g1")
	if err != nil {
		t.Fatalf("fetch group: %v", err)
	}
	if len(messages) != 1 || messages[0].GroupID != "g1" {
		t.Fatalf("unexpected messages %+v", messages)
	}
}

func TestSendMessageRequiresExactlyOneTarget(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	ctx := context.Background()

	if err := client.SendMessage(ctx, OutgoingMessage{Content: "x"}); err != ErrMessageTarget {
		t.Fatalf("no target: got %v", err)
	}
	if err := client.SendMessage(ctx, OutgoingMessage{Content: "x", ReceiverID: "u2", GroupID: "g1"}); err != ErrMessageTarget {
		t.Fatalf("both targets: got %v", err)
	}
	if err := client.SendMessage(ctx, OutgoingMessage{Content: "x", ReceiverID: "u2"}); err != nil {
		t.Fatalf("direct send: %v", err)
	}
	if err := client.SendMessage(ctx, OutgoingMessage{Content: "x", GroupID: "g1"}); err != nil {
		t.Fatalf("group send: %v", err)
	}
}

func TestCreateGroupInsertsAdminPlusMembers(t *testing.T) {
	var memberRows []domain.GroupMember
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/groups":
			writeJSON(t, w, domain.Group{ID: "g1", Name: "team", CreatedBy: "u1"})
		case "/rest/v1/group_members":
			if err := json.NewDecoder(r.Body).Decode(&memberRows); err != nil {
				t.Errorf("decode members: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	group, err := client.CreateGroup(context.Background(), "u1", "team", "", []string{"a", "b"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if group.ID != "g1" {
		t.Fatalf("unexpected group %+v", group)
	}
	if len(memberRows) != 3 {
		t.Fatalf("membership rows = %d, want 1 admin + 2 members", len(memberRows))
	}
	if memberRows[0].UserID != "u1" || memberRows[0].Role != domain.RoleAdmin {
		t.Errorf("first row must be creator admin, got %+v", memberRows[0])
	}
	for _, row := range memberRows[1:] {
		if row.Role != domain.RoleMember || row.GroupID != "g1" {
			t.Errorf("bad member row %+v", row)
		}
	}
}

func TestCreateGroupRollsBackOnMembershipFailure(t *testing.T) {
	var deletedGroup string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/rest/v1/groups" && r.Method == http.MethodPost:
			writeJSON(t, w, domain.Group{ID: "g1", Name: "team"})
		case r.URL.Path == "/rest/v1/group_members":
			w.WriteHeader(http.StatusForbidden)
			writeJSON(t, w, map[string]string{"message": "rls violation"})
		case r.URL.Path == "/rest/v1/groups" && r.Method == http.MethodDelete:
			deletedGroup = r.URL.Query().Get("id")
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	})

	_, err := client.CreateGroup(context.Background(), "u1", "team", "", []string{"a"})
	if err == nil {
		t.Fatal("expected error from membership insert")
	}
	if deletedGroup != "eq.g1" {
		t.Fatalf("orphaned group not rolled back, delete filter = %q", deletedGroup)
	}
}

func TestFetchGroupsForUserUnwrapsJoin(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/group_members" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("user_id"); got != "eq.u1" {
			t.Errorf("user filter = %q", got)
		}
		writeJSON(t, w, []map[string]any{
			{"group": domain.Group{ID: "g1", Name: "team"}},
			{"group": nil},
		})
	})

	groups, err := client.FetchGroupsForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("fetch groups: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "g1" {
		t.Fatalf("unexpected groups %+v", groups)
	}
}

func TestFetchActiveCallNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("status"); got != "in.(calling,active)" {
			t.Errorf("status filter = %q", got)
		}
		if got := q.Get("limit"); got != "1" {
			t.Errorf("limit = %q", got)
		}
		w.WriteHeader(http.StatusNotAcceptable)
		writeJSON(t, w, map[string]string{"code": "PGRST116", "message": "no rows"})
	})

	call, err := client.FetchActiveCall(context.Background(), "u1")
	if err != nil {
		t.Fatalf("active call lookup: %v", err)
	}
	if call != nil {
		t.Fatalf("expected nil call, got %+v", call)
	}
}

func TestRemoteFailureCarriesStoreMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		writeJSON(t, w, map[string]string{"code": "42501", "message": "permission denied"})
	})

	_, err := client.FetchAcceptedConnections(context.Background(), "u1")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Message != "permission denied" || apiErr.Code != "42501" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}
