package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/chain"
	"github.com/chainraise/backend/internal/config"
	"github.com/chainraise/backend/internal/events"
	"github.com/chainraise/backend/internal/models"
	"github.com/chainraise/backend/internal/token"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrEndTimeInPast      = errors.New("end time is in the past")
	ErrUploadFailed       = errors.New("content upload failed")
	ErrCreationInProgress = errors.New("another creation is already in progress")
)

// endTimeLayouts are the accepted end-time inputs, tried in order. The bare
// layouts come from datetime-local form fields and are interpreted in the
// server's location.
var endTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Uploader is the content-store surface the orchestrator needs.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
	UploadJSON(ctx context.Context, v any, filename string) (string, error)
	GatewayURL(cid string) string
}

// CreationContract is the chain surface the orchestrator needs.
type CreationContract interface {
	HasSender() bool
	CreateCampaign(ctx context.Context, campaignType models.CampaignType, tokenAddr string, targetAmount *big.Int, metadataCID string, endTime int64) (string, error)
	WaitConfirmed(ctx context.Context, txHash string) error
}

// CreationInput is the user's creation form.
type CreationInput struct {
	Title        string
	Description  string
	TargetAmount string // display units
	EndTime      string
	Type         models.CampaignType
	Image        []byte // optional
	ImageName    string
}

// CreationResult reports a confirmed creation.
type CreationResult struct {
	TxHash      string `json:"tx"`
	MetadataCID string `json:"metadata_cid"`
	ImageCID    string `json:"image_cid,omitempty"`
}

// CreationService drives the two-stage campaign creation protocol: upload
// image (optional), upload metadata, submit the on-chain call, await
// confirmation. Linear with no compensation — a failure abandons the whole
// attempt, already-uploaded content is orphaned on purpose.
type CreationService struct {
	store     Uploader
	contract  CreationContract
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger

	// one creation in flight per process; TryLock keeps a second attempt
	// from queueing behind the first
	inFlight sync.Mutex

	now func() time.Time // injected for tests
}

func NewCreationService(
	store Uploader,
	contract CreationContract,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *CreationService {
	return &CreationService{
		store:     store,
		contract:  contract,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Create runs the full protocol. Uploads always precede the contract call;
// if any upload fails, no transaction is ever submitted.
func (s *CreationService) Create(ctx context.Context, in CreationInput) (CreationResult, error) {
	if !s.inFlight.TryLock() {
		return CreationResult{}, ErrCreationInProgress
	}
	defer s.inFlight.Unlock()

	// 1. Required fields
	if in.Title == "" || in.Description == "" || in.TargetAmount == "" || in.EndTime == "" {
		return CreationResult{}, fmt.Errorf("%w: title, description, target amount and end time are required", ErrValidation)
	}

	// 2. Target amount in base units, strictly positive
	target, err := token.Parse(in.TargetAmount, s.cfg.TokenDecimals)
	if err != nil {
		return CreationResult{}, err
	}
	if target.Sign() <= 0 {
		return CreationResult{}, token.ErrInvalidAmount
	}

	// 3. End time must clear now plus the forward buffer, absorbing clock
	// skew and confirmation latency before the contract compares timestamps
	endTime, err := s.parseEndTime(in.EndTime)
	if err != nil {
		return CreationResult{}, err
	}

	// 4. Write capability
	if !s.contract.HasSender() {
		return CreationResult{}, chain.ErrNoWallet
	}

	// 5. Optional image upload — once attached it is not skippable
	var result CreationResult
	imageURL := ""
	if len(in.Image) > 0 {
		name := in.ImageName
		if name == "" {
			name = "campaign-image"
		}
		cid, err := s.store.Upload(ctx, in.Image, name)
		if err != nil {
			return CreationResult{}, fmt.Errorf("%w: image: %v", ErrUploadFailed, err)
		}
		result.ImageCID = cid
		imageURL = s.store.GatewayURL(cid)
	}

	// 6–7. Assemble and upload metadata
	meta := models.Metadata{
		Title:       in.Title,
		Description: in.Description,
		Image:       imageURL,
	}
	metaCID, err := s.store.UploadJSON(ctx, meta, "metadata.json")
	if err != nil {
		return CreationResult{}, fmt.Errorf("%w: metadata: %v", ErrUploadFailed, err)
	}
	result.MetadataCID = metaCID

	// 8–9. Submit and await the on-chain creation
	txHash, err := s.contract.CreateCampaign(ctx, in.Type, s.cfg.TokenAddress, target, metaCID, endTime)
	if err != nil {
		return CreationResult{}, err
	}
	result.TxHash = txHash

	if err := s.contract.WaitConfirmed(ctx, txHash); err != nil {
		return CreationResult{}, err
	}

	s.log.Info("campaign created",
		zap.String("tx", txHash),
		zap.String("metadata_cid", metaCID),
		zap.String("title", in.Title),
	)
	_ = s.publisher.Publish(ctx, events.StreamCampaigns, events.Event{
		Type:    events.EventCampaignCreated,
		Payload: map[string]any{"tx": txHash, "metadata_cid": metaCID},
	})

	return result, nil
}

func (s *CreationService) parseEndTime(input string) (int64, error) {
	var parsed time.Time
	var err error
	for _, layout := range endTimeLayouts {
		if layout == time.RFC3339 {
			parsed, err = time.Parse(layout, input)
		} else {
			parsed, err = time.ParseInLocation(layout, input, time.Local)
		}
		if err == nil {
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable end time %q", ErrValidation, input)
	}

	cutoff := s.now().Add(s.cfg.EndTimeBuffer)
	if !parsed.After(cutoff) {
		return 0, ErrEndTimeInPast
	}
	return parsed.Unix(), nil
}
