package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/chain"
	"github.com/chainraise/backend/internal/config"
	"github.com/chainraise/backend/internal/lifecycle"
	"github.com/chainraise/backend/internal/metadata"
	"github.com/chainraise/backend/internal/models"
	"github.com/chainraise/backend/internal/snapshot"
)

const (
	creatorAddr = "0x1111111111111111111111111111111111111111"
	donorAddr   = "0x2222222222222222222222222222222222222222"
)

type fakeCampaignSource struct {
	campaigns []chain.RawCampaign
}

func (f *fakeCampaignSource) GetAllCampaigns(ctx context.Context) ([]chain.RawCampaign, error) {
	return f.campaigns, nil
}

type fakeReclaimedSource struct{}

func (fakeReclaimedSource) HasReclaimed(ctx context.Context, localID int64, donor string) (bool, error) {
	return false, nil
}

type fakeActions struct {
	donateCalls int
	lastMethod  string
	failTx      bool
}

func (f *fakeActions) tx(method string) (string, error) {
	if f.failTx {
		return "", chain.ErrTransactionFailed
	}
	f.lastMethod = method
	return "0xdead", nil
}

func (f *fakeActions) Donate(ctx context.Context, localID int64, tokenAddr string, amount *big.Int) (string, error) {
	f.donateCalls++
	return f.tx("donate")
}

func (f *fakeActions) InitiateClosure(ctx context.Context, localID int64) (string, error) {
	return f.tx("initiateClosure")
}

func (f *fakeActions) WithdrawFunds(ctx context.Context, localID int64) (string, error) {
	return f.tx("withdrawFunds")
}

func (f *fakeActions) ClaimRefund(ctx context.Context, localID int64) (string, error) {
	return f.tx("claimRefund")
}

func (f *fakeActions) CancelCampaign(ctx context.Context, localID int64) (string, error) {
	return f.tx("cancelCampaign")
}

func (f *fakeActions) WaitConfirmed(ctx context.Context, txHash string) error { return nil }

func rawActiveCampaign(target, raised int64, endIn time.Duration) chain.RawCampaign {
	return chain.RawCampaign{
		Creator:           common.HexToAddress(creatorAddr),
		AcceptedToken:     common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		TargetAmount:      big.NewInt(target),
		RaisedAmount:      big.NewInt(raised),
		TotalEverRaised:   big.NewInt(raised),
		MetadataCID:       "", // resolver falls back to the placeholder title
		EndTime:           big.NewInt(time.Now().Add(endIn).Unix()),
		Status:            uint8(models.StatusActive),
		CreationTimestamp: big.NewInt(time.Now().Add(-time.Hour).Unix()),
		ReclaimDeadline:   big.NewInt(0),
		CampaignType:      uint8(models.TypeStartup),
	}
}

func newTestCampaignService(t *testing.T, raw ...chain.RawCampaign) (*CampaignService, *fakeActions, *nopPublisher) {
	t.Helper()
	log := zap.NewNop()

	snap := snapshot.NewStore(&fakeCampaignSource{campaigns: raw}, log)
	if err := snap.Refresh(context.Background()); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	engine := lifecycle.NewEngine(fakeReclaimedSource{}, log)
	resolver := metadata.NewResolver("https://ipfs.io/ipfs", time.Second, log)
	actions := &fakeActions{}
	pub := &nopPublisher{}
	cfg := &config.Config{TokenDecimals: 6}

	return NewCampaignService(snap, engine, resolver, actions, pub, cfg, log), actions, pub
}

func TestListEnrichesViews(t *testing.T) {
	svc, _, _ := newTestCampaignService(t,
		rawActiveCampaign(100_000000, 25_000000, 48*time.Hour),
		rawActiveCampaign(200_000000, 0, 48*time.Hour),
	)

	list := svc.List(context.Background(), donorAddr, ListFilter{})
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}

	v := list[0]
	if v.Title != "Campaign #0" {
		t.Errorf("fallback title = %q", v.Title)
	}
	if v.Progress != 25.00 {
		t.Errorf("progress = %v, want 25", v.Progress)
	}
	if v.RaisedDisplay != "25.00" || v.TargetDisplay != "100.00" {
		t.Errorf("displays = %q / %q", v.RaisedDisplay, v.TargetDisplay)
	}
	if v.Assessment.StatusLabel != "Active" {
		t.Errorf("status label = %q", v.Assessment.StatusLabel)
	}
}

func TestGetUnknownCampaign(t *testing.T) {
	svc, _, _ := newTestCampaignService(t, rawActiveCampaign(100, 0, time.Hour))
	if _, err := svc.Get(context.Background(), 42, ""); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("err = %v, want ErrCampaignNotFound", err)
	}
}

func TestDonate(t *testing.T) {
	svc, actions, pub := newTestCampaignService(t, rawActiveCampaign(100_000000, 0, 48*time.Hour))

	tx, err := svc.Donate(context.Background(), 0, donorAddr, "10")
	if err != nil {
		t.Fatalf("Donate: %v", err)
	}
	if tx != "0xdead" || actions.donateCalls != 1 {
		t.Fatalf("tx = %q, donate calls = %d", tx, actions.donateCalls)
	}
	if pub.published == 0 {
		t.Error("no event published after confirmed donation")
	}
}

func TestDonateRejectsCreator(t *testing.T) {
	svc, actions, _ := newTestCampaignService(t, rawActiveCampaign(100_000000, 0, 48*time.Hour))

	if _, err := svc.Donate(context.Background(), 0, creatorAddr, "10"); !errors.Is(err, ErrActionNotAvailable) {
		t.Fatalf("err = %v, want ErrActionNotAvailable", err)
	}
	if actions.donateCalls != 0 {
		t.Error("donate reached the contract despite rejection")
	}
}

func TestWithdrawOnlyForCreatorOfSuccessful(t *testing.T) {
	raw := rawActiveCampaign(100_000000, 100_000000, -time.Hour)
	raw.Status = uint8(models.StatusSuccessful)
	svc, actions, _ := newTestCampaignService(t, raw)

	if _, err := svc.Withdraw(context.Background(), 0, donorAddr); !errors.Is(err, ErrActionNotAvailable) {
		t.Fatalf("donor withdraw err = %v, want ErrActionNotAvailable", err)
	}

	if _, err := svc.Withdraw(context.Background(), 0, creatorAddr); err != nil {
		t.Fatalf("creator withdraw: %v", err)
	}
	if actions.lastMethod != "withdrawFunds" {
		t.Errorf("last method = %q", actions.lastMethod)
	}
}

func TestCancelGatedOnCreator(t *testing.T) {
	svc, _, _ := newTestCampaignService(t, rawActiveCampaign(100_000000, 0, 48*time.Hour))

	if _, err := svc.Cancel(context.Background(), 0, donorAddr); !errors.Is(err, ErrActionNotAvailable) {
		t.Fatalf("err = %v, want ErrActionNotAvailable", err)
	}
	if _, err := svc.Cancel(context.Background(), 0, creatorAddr); err != nil {
		t.Fatalf("creator cancel: %v", err)
	}
}

func TestListStatusFilter(t *testing.T) {
	closed := rawActiveCampaign(100, 0, -time.Hour)
	closed.Status = uint8(models.StatusClosed)
	svc, _, _ := newTestCampaignService(t, rawActiveCampaign(100, 0, time.Hour), closed)

	active := svc.List(context.Background(), "", ListFilter{Status: "active"})
	if len(active) != 1 || active[0].Status != models.StatusActive {
		t.Fatalf("active filter returned %d items", len(active))
	}
}
