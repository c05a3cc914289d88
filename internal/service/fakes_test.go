package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"app/internal/model"
	"app/internal/replicate"
	"app/internal/repository"
)

// fakeLedgerRepo is an in-memory ledger keyed by user ID.
type fakeLedgerRepo struct {
	mu       sync.Mutex
	subs     map[string]*model.Subscription
	events   map[string]bool
	payments []repository.PaymentApplication
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{
		subs:   make(map[string]*model.Subscription),
		events: make(map[string]bool),
	}
}

func (f *fakeLedgerRepo) seed(userID, planID string, remaining, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[userID] = &model.Subscription{
		UserID:          userID,
		PlanID:          planID,
		Status:          model.SubscriptionStatusActive,
		ImagesTotal:     total,
		ImagesUsed:      total - remaining,
		ImagesRemaining: remaining,
		BillingCycle:    model.BillingCycleMonthly,
	}
}

func (f *fakeLedgerRepo) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[userID]
	if !ok {
		return nil, repository.ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeLedgerRepo) ProvisionTrial(ctx context.Context, userID string, imagesTotal, periodDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[userID]; ok {
		return nil
	}
	f.subs[userID] = &model.Subscription{
		UserID:          userID,
		PlanID:          "trial",
		Status:          model.SubscriptionStatusTrial,
		ImagesTotal:     imagesTotal,
		ImagesRemaining: imagesTotal,
	}
	return nil
}

func (f *fakeLedgerRepo) ApplyPayment(ctx context.Context, p repository.PaymentApplication) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events[p.StripeEventID] {
		cp := *f.subs[p.UserID]
		return &cp, nil
	}
	f.events[p.StripeEventID] = true
	f.payments = append(f.payments, p)
	f.subs[p.UserID] = &model.Subscription{
		UserID:          p.UserID,
		PlanID:          p.PlanID,
		Status:          p.Status,
		PeriodStart:     p.PeriodStart,
		PeriodEnd:       p.PeriodEnd,
		ImagesTotal:     p.ImagesTotal,
		ImagesRemaining: p.ImagesTotal,
		BillingCycle:    p.BillingCycle,
	}
	cp := *f.subs[p.UserID]
	return &cp, nil
}

func (f *fakeLedgerRepo) ConsumeCredit(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[userID]
	if !ok {
		return 0, repository.ErrSubscriptionNotFound
	}
	if sub.ImagesRemaining <= 0 {
		return 0, repository.ErrInsufficientCredits
	}
	sub.ImagesRemaining--
	sub.ImagesUsed++
	return sub.ImagesRemaining, nil
}

func (f *fakeLedgerRepo) Downgrade(ctx context.Context, userID string, imagesTotal, periodDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[userID] = &model.Subscription{
		UserID:          userID,
		PlanID:          "trial",
		Status:          model.SubscriptionStatusTrial,
		ImagesTotal:     imagesTotal,
		ImagesRemaining: imagesTotal,
	}
	return nil
}

func (f *fakeLedgerRepo) RolloverExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// fakeJobRepo stores jobs in memory and mirrors the monotonic progress rule.
type fakeJobRepo struct {
	mu     sync.Mutex
	jobs   map[string]*model.EnhancementJob
	nextID int
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*model.EnhancementJob)}
}

func (f *fakeJobRepo) Create(ctx context.Context, job *model.EnhancementJob) (*model.EnhancementJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *job
	cp.ID = fmt.Sprintf("job-%d", f.nextID)
	cp.Status = model.JobStatusQueued
	f.jobs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, jobID string) (*model.EnhancementJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobRepo) SetProgress(ctx context.Context, jobID, status string, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return repository.ErrJobNotFound
	}
	job.Status = status
	if progress > job.Progress {
		job.Progress = progress
	}
	return nil
}

func (f *fakeJobRepo) UpdateParameters(ctx context.Context, jobID string, scale int, quality model.Quality) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return repository.ErrJobNotFound
	}
	job.Scale = scale
	job.Quality = quality
	return nil
}

func (f *fakeJobRepo) MarkCompleted(ctx context.Context, jobID, enhancedURL string, simulated bool, processingTimeMS int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return repository.ErrJobNotFound
	}
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.EnhancedURL = enhancedURL
	job.Simulated = simulated
	job.ProcessingTime = processingTimeMS
	return nil
}

func (f *fakeJobRepo) MarkFailed(ctx context.Context, jobID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return repository.ErrJobNotFound
	}
	job.Status = model.JobStatusFailed
	job.ErrorMessage = message
	return nil
}

func (f *fakeJobRepo) UpdateStoragePath(ctx context.Context, jobID, storagePath string, fileSizeBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return repository.ErrJobNotFound
	}
	job.StoragePath = storagePath
	job.FileSizeBytes = fileSizeBytes
	return nil
}

func (f *fakeJobRepo) Delete(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, jobID)
	return nil
}

// fakeUsageRepo is an in-memory usage log.
type fakeUsageRepo struct {
	mu      sync.Mutex
	records []model.UsageRecord
	insErr  error
	cutoff  time.Time
}

func (f *fakeUsageRepo) Insert(ctx context.Context, rec *model.UsageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insErr != nil {
		return f.insErr
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeUsageRepo) ListByUser(ctx context.Context, userID string) ([]model.UsageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UsageRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakeUsageRepo) Trim(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	var kept []model.UsageRecord
	var deleted int64
	for _, rec := range f.records {
		if rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	f.records = kept
	return deleted, nil
}

func (f *fakeUsageRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeUserRepo tracks upload counters.
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]*model.User
	uploads map[string]int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), uploads: make(map[string]int)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.users[user.UserID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.StripeCustomerID = &customerID
	}
	return nil
}

func (f *fakeUserRepo) IncrementUploads(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[userID]++
	return nil
}

// fakeProvider scripts the provider's behavior per call.
type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	scale    int
	quality  model.Quality
	result   *replicate.Result
	err      error
	stages   []replicate.Progress
	onInvoke func()
}

func (f *fakeProvider) Enhance(ctx context.Context, imageURL string, scale int, quality model.Quality, onProgress replicate.ProgressFunc) (*replicate.Result, error) {
	f.mu.Lock()
	f.calls++
	f.scale = scale
	f.quality = quality
	stages := f.stages
	onInvoke := f.onInvoke
	f.mu.Unlock()

	if onInvoke != nil {
		onInvoke()
	}
	if onProgress != nil {
		for _, p := range stages {
			onProgress(p)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &replicate.Result{OutputURL: "https://cdn.example.com/enhanced.png"}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// staticResolver returns a fixed source URL.
type staticResolver struct{ url string }

func (s staticResolver) SourceURL(ctx context.Context, storagePath string) (string, error) {
	return s.url, nil
}
