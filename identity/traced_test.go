package identity_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/takemethere/identity"
	"github.com/jrsteele09/takemethere/identity/mocks"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"
)

func TestTraced_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctrl := gomock.NewController(t)
	p := mocks.NewMockProvider(ctrl)
	p.EXPECT().GetUser(gomock.Any(), "at").Return(&identity.Identity{ID: "u1"}, nil)
	p.EXPECT().UpdatePassword(gomock.Any(), "at", "N3w!Passw0rd").
		Return(nil, &identity.ProviderError{Status: 401, Code: "bad_jwt"})

	traced := identity.Traced(p)
	id, err := traced.GetUser(context.Background(), "at")
	require.NoError(t, err)
	require.Equal(t, "u1", id.ID)

	_, err = traced.UpdatePassword(context.Background(), "at", "N3w!Passw0rd")
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, "identity.GetUser", spans[0].Name())
	require.Equal(t, codes.Unset, spans[0].Status().Code)
	require.Equal(t, "identity.UpdatePassword", spans[1].Name())
	require.Equal(t, codes.Error, spans[1].Status().Code)
	for _, kv := range spans[1].Attributes() {
		require.NotEqual(t, "N3w!Passw0rd", kv.Value.AsString())
	}
}
