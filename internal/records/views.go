package records

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/five82/beaconscope/internal/grid"
)

// Views are the decoded row values the grids display: the model plus the
// identifier the record was fetched under.

type EpochView struct {
	Epoch                   uint64
	Timestamp               uint64
	BlocksCount             int
	ProposerSlashingsCount  int
	AttesterSlashingsCount  int
	AttestationsCount       int
	DepositsCount           int
	VoluntaryExitsCount     int
	ValidatorsCount         int
	AverageValidatorBalance uint64
	TotalValidatorBalance   uint64
	Finalized               bool
	EligibleEther           uint64
	GlobalParticipationRate float64
	VotedEther              uint64
}

type BlockView struct {
	Slot                   uint64
	Epoch                  uint64
	ProposerSlashingsCount int
	AttesterSlashingsCount int
	AttestationsCount      int
	DepositsCount          int
	VoluntaryExitsCount    int
	Proposer               uint64
	Status                 string
}

type ValidatorView struct {
	Index            uint64
	PubkeyHex        string
	Balance          uint64
	EffectiveBalance uint64
	Slashed          bool
	ActivationEpoch  uint64
	ExitEpoch        *uint64
	Status           string
}

type DepositView struct {
	Index     uint64
	Slot      uint64
	PublicKey string
	Amount    uint64
	Signature string
}

type BlockRequestView struct {
	Root          string
	FailedCount   uint64
	NotFoundCount uint64
	State         string
}

type GoodPeerView struct {
	PeerID  string
	Address string
}

func DecodeEpoch(id grid.ID, data []byte) (EpochView, error) {
	var v EpochView
	if err := decodeView[EpochModel](data, &v); err != nil {
		return EpochView{}, err
	}
	v.Epoch, _ = id.Uint64()
	return v, nil
}

func DecodeBlock(id grid.ID, data []byte) (BlockView, error) {
	var v BlockView
	if err := decodeView[BlockModel](data, &v); err != nil {
		return BlockView{}, err
	}
	v.Slot, _ = id.Uint64()
	return v, nil
}

func DecodeValidator(id grid.ID, data []byte) (ValidatorView, error) {
	var m ValidatorModel
	if err := Decode(data, &m); err != nil {
		return ValidatorView{}, err
	}
	var v ValidatorView
	if err := copyModel(&v, &m); err != nil {
		return ValidatorView{}, err
	}
	if v.PubkeyHex == "" && len(m.Pubkey) > 0 {
		v.PubkeyHex = hexutil.Encode(m.Pubkey)
	}
	v.Index, _ = id.Uint64()
	return v, nil
}

func DecodeDeposit(id grid.ID, data []byte) (DepositView, error) {
	var v DepositView
	if err := decodeView[DepositModel](data, &v); err != nil {
		return DepositView{}, err
	}
	v.Index, _ = id.Uint64()
	return v, nil
}

// DecodeBlockRequest keys block requests by their root; the id is the
// 0x-prefixed hex root.
func DecodeBlockRequest(id grid.ID, data []byte) (BlockRequestView, error) {
	var m BlockRequestModel
	if err := Decode(data, &m); err != nil {
		return BlockRequestView{}, err
	}
	v := BlockRequestView{
		Root:          id.String(),
		FailedCount:   m.FailedCount,
		NotFoundCount: m.NotFoundCount,
		State:         m.State,
	}
	if len(m.Root) > 0 {
		v.Root = hexutil.Encode(m.Root)
	}
	return v, nil
}

func DecodeGoodPeer(id grid.ID, data []byte) (GoodPeerView, error) {
	var v GoodPeerView
	if err := decodeView[GoodPeerModel](data, &v); err != nil {
		return GoodPeerView{}, err
	}
	v.PeerID = id.String()
	return v, nil
}
