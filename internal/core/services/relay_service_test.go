package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPairingManager struct{ mock.Mock }

func (m *mockPairingManager) TryPair(ctx context.Context, a, b domain.SessionID) (*domain.Pairing, error) {
	args := m.Called(ctx, a, b)
	p, _ := args.Get(0).(*domain.Pairing)
	return p, args.Error(1)
}
func (m *mockPairingManager) Unpair(ctx context.Context, id domain.SessionID) (domain.SessionID, bool) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.SessionID), args.Bool(1)
}
func (m *mockPairingManager) PartnerOf(ctx context.Context, id domain.SessionID) (domain.SessionID, bool) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.SessionID), args.Bool(1)
}
func (m *mockPairingManager) IsPaired(ctx context.Context, id domain.SessionID) bool {
	args := m.Called(ctx, id)
	return args.Bool(0)
}

type mockRegistry struct{ mock.Mock }

func (m *mockRegistry) Register(ctx context.Context, session *domain.Session) error {
	return m.Called(ctx, session).Error(0)
}
func (m *mockRegistry) Unregister(ctx context.Context, id domain.SessionID) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockRegistry) Get(ctx context.Context, id domain.SessionID) (*domain.Session, bool) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*domain.Session)
	return s, args.Bool(1)
}
func (m *mockRegistry) Send(ctx context.Context, id domain.SessionID, event domain.Event) error {
	return m.Called(ctx, id, event).Error(0)
}

type mockModerator struct{ mock.Mock }

func (m *mockModerator) Check(ctx context.Context, text string) (ports.ModerationVerdict, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(ports.ModerationVerdict), args.Error(1)
}

type mockMetrics struct{ mock.Mock }

func (m *mockMetrics) UpdateQueueSnapshot(snapshot domain.Snapshot) { m.Called(snapshot) }
func (m *mockMetrics) SetActivePairings(n int)                      { m.Called(n) }
func (m *mockMetrics) SetSearchesInFlight(n int)                    { m.Called(n) }
func (m *mockMetrics) RecordMatch(waitTime time.Duration)           { m.Called(waitTime) }
func (m *mockMetrics) RecordMessageRelayed()                        { m.Called() }
func (m *mockMetrics) RecordModeratorVeto()                         { m.Called() }
func (m *mockMetrics) RecordSignalRelayed(eventType domain.EventType) {
	m.Called(eventType)
}

func TestRelayService_RouteSignal_DeliversToDeclaredPartner(t *testing.T) {
	pairing := &mockPairingManager{}
	registry := &mockRegistry{}
	moderator := &mockModerator{}
	metrics := &mockMetrics{}
	ctx := context.Background()

	pairing.On("PartnerOf", ctx, domain.SessionID("a")).Return(domain.SessionID("b"), true)
	metrics.On("RecordSignalRelayed", domain.EventOffer).Return()
	registry.On("Send", ctx, domain.SessionID("b"), mock.AnythingOfType("domain.Event")).Return(nil)

	r := NewRelayService(pairing, registry, moderator, metrics, zap.NewNop().Sugar())
	err := r.RouteSignal(ctx, "a", domain.EventOffer, domain.SignalPayload{To: "b"})

	require.NoError(t, err)
	registry.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestRelayService_RouteSignal_DropsMismatchedTarget(t *testing.T) {
	pairing := &mockPairingManager{}
	registry := &mockRegistry{}
	moderator := &mockModerator{}
	ctx := context.Background()

	pairing.On("PartnerOf", ctx, domain.SessionID("a")).Return(domain.SessionID("b"), true)

	r := NewRelayService(pairing, registry, moderator, nil, zap.NewNop().Sugar())
	err := r.RouteSignal(ctx, "a", domain.EventOffer, domain.SignalPayload{To: "c"})

	require.NoError(t, err)
	registry.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestRelayService_RelayMessage_Veto(t *testing.T) {
	pairing := &mockPairingManager{}
	registry := &mockRegistry{}
	moderator := &mockModerator{}
	metrics := &mockMetrics{}
	ctx := context.Background()

	moderator.On("Check", ctx, "bad text").Return(ports.ModerationVerdict{Allowed: false, Reason: "no"}, nil)
	metrics.On("RecordModeratorVeto").Return()
	registry.On("Send", ctx, domain.SessionID("sender"), mock.AnythingOfType("domain.Event")).Return(nil)

	r := NewRelayService(pairing, registry, moderator, metrics, zap.NewNop().Sugar())
	err := r.RelayMessage(ctx, "sender", "bad text")

	require.NoError(t, err)
	pairing.AssertNotCalled(t, "PartnerOf", mock.Anything, mock.Anything)
	registry.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestRelayService_RelayMessage_AllowedDeliversToBoth(t *testing.T) {
	pairing := &mockPairingManager{}
	registry := &mockRegistry{}
	moderator := &mockModerator{}
	metrics := &mockMetrics{}
	ctx := context.Background()

	moderator.On("Check", ctx, "hi").Return(ports.ModerationVerdict{Allowed: true}, nil)
	pairing.On("PartnerOf", ctx, domain.SessionID("sender")).Return(domain.SessionID("partner"), true)
	metrics.On("RecordMessageRelayed").Return()
	registry.On("Send", ctx, domain.SessionID("sender"), mock.AnythingOfType("domain.Event")).Return(nil)
	registry.On("Send", ctx, domain.SessionID("partner"), mock.AnythingOfType("domain.Event")).Return(nil)

	r := NewRelayService(pairing, registry, moderator, metrics, zap.NewNop().Sugar())
	err := r.RelayMessage(ctx, "sender", "hi")

	require.NoError(t, err)
	registry.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestRelayService_RelayMessage_ModeratorErrorAllowsByDefault(t *testing.T) {
	pairing := &mockPairingManager{}
	registry := &mockRegistry{}
	moderator := &mockModerator{}
	ctx := context.Background()

	moderator.On("Check", ctx, "hi").Return(ports.ModerationVerdict{}, errors.New("moderator down"))
	pairing.On("PartnerOf", ctx, domain.SessionID("sender")).Return(domain.SessionID("partner"), true)
	registry.On("Send", ctx, mock.Anything, mock.AnythingOfType("domain.Event")).Return(nil)

	r := NewRelayService(pairing, registry, moderator, nil, zap.NewNop().Sugar())
	err := r.RelayMessage(ctx, "sender", "hi")

	require.NoError(t, err)
	registry.AssertExpectations(t)
}

func TestRelayService_RelayPresence_MapsToOutboundType(t *testing.T) {
	pairing := &mockPairingManager{}
	registry := &mockRegistry{}
	moderator := &mockModerator{}
	ctx := context.Background()

	pairing.On("PartnerOf", ctx, domain.SessionID("a")).Return(domain.SessionID("b"), true)
	registry.On("Send", ctx, domain.SessionID("b"), domain.Event{
		Type:    domain.EventUserTyping,
		Payload: nil,
	}).Return(nil)

	r := NewRelayService(pairing, registry, moderator, nil, zap.NewNop().Sugar())
	err := r.RelayPresence(ctx, "a", domain.EventTyping, nil)

	require.NoError(t, err)
	registry.AssertExpectations(t)
}

func TestRelayService_RelayPresence_NoPartnerIsNoop(t *testing.T) {
	pairing := &mockPairingManager{}
	registry := &mockRegistry{}
	moderator := &mockModerator{}
	ctx := context.Background()

	pairing.On("PartnerOf", ctx, domain.SessionID("a")).Return(domain.SessionID(""), false)

	r := NewRelayService(pairing, registry, moderator, nil, zap.NewNop().Sugar())
	err := r.RelayPresence(ctx, "a", domain.EventTyping, nil)

	require.NoError(t, err)
	registry.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}
