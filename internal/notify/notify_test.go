package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordingSender struct {
	calls []Channel
	err   error
}

func (r *recordingSender) Send(ctx context.Context, ch Channel, msg Message) error {
	r.calls = append(r.calls, ch)
	return r.err
}

func TestRouterRoutesSingleChannel(t *testing.T) {
	email := &recordingSender{}
	sms := &recordingSender{}
	router := NewRouter(email, sms, nil, nil)

	if err := router.Send(context.Background(), ChannelEmail, Message{To: "a@b.c"}); err != nil {
		t.Fatalf("email send: %v", err)
	}
	if len(email.calls) != 1 || len(sms.calls) != 0 {
		t.Fatalf("expected only email sender used, got email=%d sms=%d", len(email.calls), len(sms.calls))
	}
}

func TestRouterAllFansOut(t *testing.T) {
	email := &recordingSender{}
	sms := &recordingSender{}
	push := &recordingSender{}
	router := NewRouter(email, sms, push, nil)

	if err := router.Send(context.Background(), ChannelAll, Message{To: "a@b.c"}); err != nil {
		t.Fatalf("all send: %v", err)
	}
	if len(email.calls) != 1 || len(sms.calls) != 1 || len(push.calls) != 1 {
		t.Fatal("expected every channel attempted for all")
	}
}

func TestRouterAllJoinsFailures(t *testing.T) {
	email := &recordingSender{err: errors.New("smtp down")}
	sms := &recordingSender{}
	router := NewRouter(email, sms, nil, nil)

	err := router.Send(context.Background(), ChannelAll, Message{To: "a@b.c"})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(sms.calls) != 1 {
		t.Fatal("expected sms still attempted after email failure")
	}
}

func TestRouterMissingSenderFails(t *testing.T) {
	router := NewRouter(nil, nil, nil, nil)
	if err := router.Send(context.Background(), ChannelSMS, Message{Phone: "+1555"}); err == nil {
		t.Fatal("expected error for unconfigured channel")
	}
}

func TestRouterUnknownChannel(t *testing.T) {
	router := NewRouter(&recordingSender{}, nil, nil, nil)
	if err := router.Send(context.Background(), Channel("fax"), Message{}); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}

func TestValidChannel(t *testing.T) {
	for _, ch := range []Channel{ChannelEmail, ChannelSMS, ChannelPush, ChannelAll} {
		if !ValidChannel(ch) {
			t.Fatalf("expected %s valid", ch)
		}
	}
	if ValidChannel("carrier-pigeon") {
		t.Fatal("expected unknown channel invalid")
	}
}

func TestSMSGatewaySenderPostsPayload(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender, err := NewSMSGatewaySender(SMSGatewayConfig{BaseURL: srv.URL, APIKey: "key", FromNumber: "+1000"}, nil)
	if err != nil {
		t.Fatalf("new sms sender: %v", err)
	}
	if err := sender.Send(context.Background(), ChannelSMS, Message{Phone: "+15550100", Body: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAuth != "Bearer key" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
}

func TestSMSGatewaySenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sender, err := NewSMSGatewaySender(SMSGatewayConfig{BaseURL: srv.URL, APIKey: "key"}, nil)
	if err != nil {
		t.Fatalf("new sms sender: %v", err)
	}
	if err := sender.Send(context.Background(), ChannelSMS, Message{Phone: "+15550100"}); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestSMSGatewaySenderRequiresPhone(t *testing.T) {
	sender, err := NewSMSGatewaySender(SMSGatewayConfig{BaseURL: "http://gw", APIKey: "key"}, nil)
	if err != nil {
		t.Fatalf("new sms sender: %v", err)
	}
	if err := sender.Send(context.Background(), ChannelSMS, Message{}); err == nil {
		t.Fatal("expected error for missing phone")
	}
}

func TestPushGatewaySenderPostsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notifications" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender, err := NewPushGatewaySender(PushGatewayConfig{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("new push sender: %v", err)
	}
	if err := sender.Send(context.Background(), ChannelPush, Message{DeviceToken: "tok", Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestStubSenderAlwaysSucceeds(t *testing.T) {
	if err := NewStubSender(nil).Send(context.Background(), ChannelEmail, Message{To: "a@b.c"}); err != nil {
		t.Fatalf("stub send: %v", err)
	}
}
