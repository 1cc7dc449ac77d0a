package dataserver

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/five82/beaconscope/internal/grid"
	"github.com/five82/beaconscope/internal/records"
)

// SeedOptions sizes the synthetic dataset.
type SeedOptions struct {
	Epochs        int
	Validators    int
	Deposits      int
	BlockRequests int
	GoodPeers     int
	// Seed makes the generated data reproducible.
	Seed uint64
}

const (
	genesisTime    = 1606824023
	secondsPerSlot = 12
	gwei           = 1_000_000_000
)

// Seed fills store with deterministic synthetic records. Block slots start
// at 1; slot 0 is genesis and is never indexed.
func Seed(ctx context.Context, store *Store, opts SeedOptions) error {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	steps := []struct {
		name string
		fn   func(context.Context, *Store, *rand.Rand, SeedOptions) error
	}{
		{records.Validators, seedValidators},
		{records.Epochs, seedEpochsAndBlocks},
		{records.Deposits, seedDeposits},
		{records.BlockRequests, seedBlockRequests},
		{records.GoodPeers, seedGoodPeers},
	}
	for _, step := range steps {
		if err := step.fn(ctx, store, rng, opts); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
	}
	return nil
}

func put(ctx context.Context, store *Store, dataset string, id grid.ID, model any, keys map[string]SortKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := records.Encode(model)
	if err != nil {
		return err
	}
	return store.Put(dataset, id, payload, keys)
}

func seedValidators(ctx context.Context, store *Store, rng *rand.Rand, opts SeedOptions) error {
	for i := range opts.Validators {
		pubkey := randomBytes(rng, 48)
		balance := 32*gwei - uint64(rng.IntN(2*gwei)) + uint64(rng.IntN(gwei/2))
		effective := min(balance/gwei, 32) * gwei
		m := records.ValidatorModel{
			Pubkey:                pubkey,
			PubkeyHex:             hexutil.Encode(pubkey),
			WithdrawalCredentials: randomBytes(rng, 32),
			Balance:               balance,
			BalanceActivation:     32 * gwei,
			EffectiveBalance:      effective,
			ActivationEpoch:       uint64(i / 64),
			Status:                "active_ongoing",
		}
		if rng.IntN(40) == 0 {
			exit := uint64(opts.Epochs/2 + rng.IntN(opts.Epochs+1))
			m.ExitEpoch = &exit
			m.Status = "exited_unslashed"
		}
		err := put(ctx, store, records.Validators, grid.IntID(uint64(i)), m, map[string]SortKey{
			"balance":          Uint(m.Balance),
			"effectiveBalance": Uint(m.EffectiveBalance),
			"activationEpoch":  Uint(m.ActivationEpoch),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func seedEpochsAndBlocks(ctx context.Context, store *Store, rng *rand.Rand, opts SeedOptions) error {
	validators := max(opts.Validators, 1)
	for epoch := range uint64(opts.Epochs) {
		e := records.EpochModel{
			Epoch:           epoch,
			Timestamp:       genesisTime + epoch*grid.EpochSize*secondsPerSlot,
			ValidatorsCount: opts.Validators,
			Finalized:       epoch+2 < uint64(opts.Epochs),
		}
		for i := range uint64(grid.EpochSize) {
			slot := epoch*grid.EpochSize + i
			if slot == 0 {
				continue
			}
			b := records.BlockModel{
				Epoch:    epoch,
				Proposer: uint64(rng.IntN(validators)),
				Status:   "proposed",
			}
			if rng.IntN(12) == 0 {
				b.Status = "missed"
			} else {
				b.AttestationsCount = 64 + rng.IntN(64)
				b.DepositsCount = rng.IntN(3)
				if rng.IntN(50) == 0 {
					b.ProposerSlashingsCount = 1
				}
				if rng.IntN(40) == 0 {
					b.AttesterSlashingsCount = 1
				}
				if rng.IntN(30) == 0 {
					b.VoluntaryExitsCount = 1
				}
				e.BlocksCount++
			}
			e.AttestationsCount += b.AttestationsCount
			e.DepositsCount += b.DepositsCount
			e.ProposerSlashingsCount += b.ProposerSlashingsCount
			e.AttesterSlashingsCount += b.AttesterSlashingsCount
			e.VoluntaryExitsCount += b.VoluntaryExitsCount

			err := put(ctx, store, records.Blocks, grid.IntID(slot), b, map[string]SortKey{
				"attestationsCount":      Uint(uint64(b.AttestationsCount)),
				"depositsCount":          Uint(uint64(b.DepositsCount)),
				"proposerSlashingsCount": Uint(uint64(b.ProposerSlashingsCount)),
				"attesterSlashingsCount": Uint(uint64(b.AttesterSlashingsCount)),
				"voluntaryExitsCount":    Uint(uint64(b.VoluntaryExitsCount)),
				"proposer":               Uint(b.Proposer),
			})
			if err != nil {
				return err
			}
		}

		e.TotalValidatorBalance = uint64(opts.Validators) * 32 * gwei
		if opts.Validators > 0 {
			e.AverageValidatorBalance = e.TotalValidatorBalance / uint64(opts.Validators)
		}
		e.EligibleEther = e.TotalValidatorBalance
		e.GlobalParticipationRate = 0.6 + rng.Float64()*0.4
		e.VotedEther = uint64(float64(e.EligibleEther) * e.GlobalParticipationRate)

		err := put(ctx, store, records.Epochs, grid.IntID(epoch), e, map[string]SortKey{
			"attestationsCount":       Uint(uint64(e.AttestationsCount)),
			"depositsCount":           Uint(uint64(e.DepositsCount)),
			"proposerSlashingsCount":  Uint(uint64(e.ProposerSlashingsCount)),
			"attesterSlashingsCount":  Uint(uint64(e.AttesterSlashingsCount)),
			"eligibleEther":           Uint(e.EligibleEther),
			"votedEther":              Uint(e.VotedEther),
			"globalParticipationRate": Float(e.GlobalParticipationRate),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func seedDeposits(ctx context.Context, store *Store, rng *rand.Rand, opts SeedOptions) error {
	maxSlot := max(opts.Epochs*grid.EpochSize-1, 1)
	for i := range opts.Deposits {
		d := records.DepositModel{
			Slot:                  uint64(1 + rng.IntN(maxSlot)),
			PublicKey:             hexutil.Encode(randomBytes(rng, 48)),
			WithdrawalCredentials: randomBytes(rng, 32),
			Amount:                32 * gwei,
			Signature:             hexutil.Encode(randomBytes(rng, 96)),
		}
		if rng.IntN(5) == 0 {
			d.Amount = uint64(1+rng.IntN(31)) * gwei
		}
		err := put(ctx, store, records.Deposits, grid.IntID(uint64(i)), d, map[string]SortKey{
			"slot":   Uint(d.Slot),
			"amount": Uint(d.Amount),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

var requestStates = []string{"pending", "fetched", "not_found", "failed"}

func seedBlockRequests(ctx context.Context, store *Store, rng *rand.Rand, opts SeedOptions) error {
	for range opts.BlockRequests {
		root := randomBytes(rng, 32)
		m := records.BlockRequestModel{
			Root:          root,
			FailedCount:   uint64(rng.IntN(6)),
			NotFoundCount: uint64(rng.IntN(4)),
			State:         requestStates[rng.IntN(len(requestStates))],
		}
		err := put(ctx, store, records.BlockRequests, grid.StringID(hexutil.Encode(root)), m, map[string]SortKey{
			"failedCount":   Uint(m.FailedCount),
			"notFoundCount": Uint(m.NotFoundCount),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

const peerAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func seedGoodPeers(ctx context.Context, store *Store, rng *rand.Rand, opts SeedOptions) error {
	for range opts.GoodPeers {
		id := make([]byte, 0, 53)
		id = append(id, "16Uiu2HAm"...)
		for range 44 {
			id = append(id, peerAlphabet[rng.IntN(len(peerAlphabet))])
		}
		m := records.GoodPeerModel{
			Address: fmt.Sprintf("/ip4/10.%d.%d.%d/tcp/9000", rng.IntN(256), rng.IntN(256), rng.IntN(256)),
		}
		err := put(ctx, store, records.GoodPeers, grid.StringID(string(id)), m, map[string]SortKey{
			"address": Text(m.Address),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.UintN(256))
	}
	return b
}
