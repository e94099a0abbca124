package tracking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/farewatch-api/internal/model"
	trackingService "github.com/jwalitptl/farewatch-api/internal/service/tracking"
	"github.com/jwalitptl/farewatch-api/pkg/logger"
)

type fakeQueueRepo struct {
	messages map[uuid.UUID]*model.QueuedMessage
	opened   []uuid.UUID
	clicked  []uuid.UUID
	getErr   error
}

func (r *fakeQueueRepo) Get(ctx context.Context, id uuid.UUID) (*model.QueuedMessage, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	msg, ok := r.messages[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return msg, nil
}

func (r *fakeQueueRepo) MarkOpened(ctx context.Context, id uuid.UUID) error {
	r.opened = append(r.opened, id)
	return nil
}

func (r *fakeQueueRepo) MarkClicked(ctx context.Context, id uuid.UUID) error {
	r.clicked = append(r.clicked, id)
	return nil
}

func (r *fakeQueueRepo) ClaimPending(ctx context.Context, limit int) ([]*model.QueuedMessage, error) {
	return nil, nil
}
func (r *fakeQueueRepo) MarkSent(ctx context.Context, id uuid.UUID) error { return nil }
func (r *fakeQueueRepo) MarkFailed(ctx context.Context, id uuid.UUID, sendErr string, retryAt *time.Time) error {
	return nil
}
func (r *fakeQueueRepo) PendingCount(ctx context.Context) (int, error) { return 0, nil }
func (r *fakeQueueRepo) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeAlertRepo struct {
	opened  []uuid.UUID
	clicked []uuid.UUID
}

func (r *fakeAlertRepo) CreateWithMessage(ctx context.Context, event *model.AlertEvent, msg *model.QueuedMessage) error {
	return nil
}
func (r *fakeAlertRepo) CountForUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	return 0, nil
}

func (r *fakeAlertRepo) SetEmailOpened(ctx context.Context, id uuid.UUID) error {
	r.opened = append(r.opened, id)
	return nil
}

func (r *fakeAlertRepo) SetLinkClicked(ctx context.Context, id uuid.UUID) error {
	r.clicked = append(r.clicked, id)
	return nil
}

func setup(t *testing.T) (*gin.Engine, *fakeQueueRepo, *fakeAlertRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	queue := &fakeQueueRepo{messages: map[uuid.UUID]*model.QueuedMessage{}}
	alerts := &fakeAlertRepo{}
	svc := trackingService.NewService(queue, alerts, logger.NewLogger(nil))

	engine := gin.New()
	NewHandler(svc, logger.NewLogger(nil)).RegisterRoutes(engine)
	return engine, queue, alerts
}

func queuedAlert(queue *fakeQueueRepo) *model.QueuedMessage {
	msg := &model.QueuedMessage{
		ID:           uuid.New(),
		AlertEventID: uuid.New(),
		EmailType:    model.EmailTypePriceAlert,
	}
	queue.messages[msg.ID] = msg
	return msg
}

func TestOpenServesPixelAndMarksBothRecords(t *testing.T) {
	engine, queue, alerts := setup(t)
	msg := queuedAlert(queue)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/track/open?queue_id="+msg.ID.String(), nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
	assert.Equal(t, trackingPixel, w.Body.Bytes())

	require.Len(t, queue.opened, 1)
	assert.Equal(t, msg.ID, queue.opened[0])
	require.Len(t, alerts.opened, 1)
	assert.Equal(t, msg.AlertEventID, alerts.opened[0])
}

func TestOpenServesPixelOnBadQueueID(t *testing.T) {
	engine, queue, _ := setup(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/track/open?queue_id=not-a-uuid", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, trackingPixel, w.Body.Bytes())
	assert.Empty(t, queue.opened)
}

func TestOpenServesPixelWhenStoreFails(t *testing.T) {
	engine, queue, _ := setup(t)
	queue.getErr = errors.New("connection refused")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/track/open?queue_id="+uuid.NewString(), nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, trackingPixel, w.Body.Bytes())
}

func TestClickRedirectsAndMarksBothRecords(t *testing.T) {
	engine, queue, alerts := setup(t)
	msg := queuedAlert(queue)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/track/click?queue_id="+msg.ID.String()+"&url=https%3A%2F%2Fexample.com%2Fdeals", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/deals", w.Header().Get("Location"))

	require.Len(t, queue.clicked, 1)
	require.Len(t, alerts.clicked, 1)
	assert.Equal(t, msg.AlertEventID, alerts.clicked[0])
}

func TestClickRedirectsEvenWhenTrackingFails(t *testing.T) {
	engine, queue, _ := setup(t)
	queue.getErr = errors.New("connection refused")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/track/click?queue_id="+uuid.NewString()+"&url=https%3A%2F%2Fexample.com", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))
}

func TestClickWithoutURLIsBadRequest(t *testing.T) {
	engine, _, _ := setup(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/track/click?queue_id="+uuid.NewString(), nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
