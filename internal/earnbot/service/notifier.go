package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tmatveev/earnbot/internal/earnbot/models"
	"github.com/tmatveev/earnbot/internal/earnbot/repository"
)

// AdminPoster posts a withdrawal request to the admin channel and returns
// the message ID of the posted notification.
type AdminPoster interface {
	PostWithdrawal(ctx context.Context, req models.WithdrawalRequest) (int64, error)
}

// WithdrawalNotifier posts freshly created withdrawal requests to the admin
// channel in the background
type WithdrawalNotifier struct {
	repo     repository.Repository
	poster   AdminPoster
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

const notifyBatchSize = 20

// NewWithdrawalNotifier creates a new notifier
func NewWithdrawalNotifier(repo repository.Repository, poster AdminPoster, log *zap.Logger) *WithdrawalNotifier {
	return &WithdrawalNotifier{
		repo:     repo,
		poster:   poster,
		log:      log,
		interval: 5 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the notifier loop
func (n *WithdrawalNotifier) Start() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.loop()
	}()
}

// Stop stops the notifier and waits for the loop to exit
func (n *WithdrawalNotifier) Stop() {
	close(n.stopCh)
	n.wg.Wait()
}

func (n *WithdrawalNotifier) loop() {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n.notifyPending()
		case <-n.stopCh:
			return
		}
	}
}

// notifyPending posts every pending request that has no admin message yet.
// A failed post is left unrecorded and retried next tick.
func (n *WithdrawalNotifier) notifyPending() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pending, err := n.repo.PendingUnnotified(ctx, notifyBatchSize)
	if err != nil {
		n.log.Error("loading unnotified withdrawals failed", zap.Error(err))
		return
	}

	for _, req := range pending {
		messageID, err := n.poster.PostWithdrawal(ctx, req)
		if err != nil {
			n.log.Error("posting withdrawal to admin channel failed",
				zap.String("request", req.ID),
				zap.Error(err))
			continue
		}

		if err := n.repo.RecordAdminMessageRef(ctx, req.ID, messageID); err != nil {
			// The next tick will post a duplicate; moderation buttons on
			// both messages act on the same request, so nothing double
			// applies.
			n.log.Error("recording admin message ref failed",
				zap.String("request", req.ID),
				zap.Error(err))
		}
	}
}
