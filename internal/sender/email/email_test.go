package email

import (
	"context"
	"errors"
	"testing"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

type recordingSender struct {
	got *events.EmailRequest
	err error
}

func (r *recordingSender) Send(_ context.Context, req *events.EmailRequest) (string, error) {
	r.got = req
	if r.err != nil {
		return "", r.err
	}
	return "provider-1", nil
}

func TestService_Send(t *testing.T) {
	tests := []struct {
		name        string
		defaultFrom string
		req         *events.EmailRequest
		senderErr   error
		wantFrom    string
		wantErr     bool
	}{
		{
			name:        "uses default from",
			defaultFrom: "noreply@weather.example",
			req:         &events.EmailRequest{To: "a@example.com", Subject: "s", Body: "b"},
			wantFrom:    "noreply@weather.example",
		},
		{
			name:        "keeps explicit from",
			defaultFrom: "noreply@weather.example",
			req:         &events.EmailRequest{To: "a@example.com", From: "ops@weather.example"},
			wantFrom:    "ops@weather.example",
		},
		{
			name:    "missing recipient",
			req:     &events.EmailRequest{From: "x@example.com"},
			wantErr: true,
		},
		{
			name:    "no sender address anywhere",
			req:     &events.EmailRequest{To: "a@example.com"},
			wantErr: true,
		},
		{
			name:        "provider error",
			defaultFrom: "noreply@weather.example",
			req:         &events.EmailRequest{To: "a@example.com"},
			senderErr:   errors.New("smtp down"),
			wantErr:     true,
		},
		{
			name:    "nil request",
			req:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := &recordingSender{err: tt.senderErr}
			svc := NewService(rs, tt.defaultFrom)

			id, err := svc.Send(context.Background(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Send() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if id != "provider-1" {
				t.Errorf("Send() id = %q, want provider-1", id)
			}
			if rs.got.From != tt.wantFrom {
				t.Errorf("From = %q, want %q", rs.got.From, tt.wantFrom)
			}
			if tt.req.From == "" && rs.got == tt.req {
				t.Error("Send() should not mutate the caller's request")
			}
		})
	}
}
