package records

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/five82/beaconscope/internal/grid"
	"github.com/five82/beaconscope/internal/layout"
)

// Env carries the shared collaborators a dataset needs to mount a grid.
type Env struct {
	Resolver    *grid.Resolver
	Fetcher     grid.BufferFetcher
	PageSize    int
	CacheSize   int
	Concurrency int
	Logger      *slog.Logger
}

// Dataset describes one explorable collection and knows how to mount a
// typed grid over it.
type Dataset struct {
	Name        string
	Title       string
	Kind        grid.RangeKind
	DefaultDesc bool
	// Drill names the dataset opened when a row is selected, if any.
	Drill string

	sortable []string
	mount    func(ctx context.Context, env Env, total int) (grid.Table, error)
}

// PathOf returns the record path of id in this dataset.
func (d Dataset) PathOf(id grid.ID) string { return layout.RecordPath(d.Name, id) }

// Sortable returns the ids of the columns the dataset can be sorted by,
// starting with the default sort.
func (d Dataset) Sortable() []string { return d.sortable }

// Mount builds a grid with totalCount rows and starts its first cycle.
func (d Dataset) Mount(ctx context.Context, env Env, totalCount int) (grid.Table, error) {
	if d.mount == nil {
		return nil, fmt.Errorf("dataset %q cannot be mounted", d.Name)
	}
	return d.mount(ctx, env, totalCount)
}

func define[T any](name, title string, kind grid.RangeKind, desc bool, decoder grid.Decoder[T], columns []grid.Column[T]) Dataset {
	d := Dataset{Name: name, Title: title, Kind: kind, DefaultDesc: desc}
	for _, col := range columns {
		if col.Sortable {
			d.sortable = append(d.sortable, col.ID)
		}
	}
	d.mount = func(ctx context.Context, env Env, total int) (grid.Table, error) {
		var cache *grid.RowCache[T]
		if env.CacheSize > 0 {
			var err error
			if cache, err = grid.NewRowCache[T](env.CacheSize); err != nil {
				return nil, err
			}
		}
		c, err := grid.NewController(grid.Options[T]{
			Dataset:     name,
			Kind:        kind,
			TotalCount:  total,
			PageSize:    env.PageSize,
			DefaultSort: grid.DefaultSort,
			DefaultDesc: desc,
			Columns:     columns,
			PathOf:      d.PathOf,
			Decoder:     decoder,
			Resolver:    env.Resolver,
			Fetcher:     env.Fetcher,
			Cache:       cache,
			Concurrency: env.Concurrency,
			Logger:      env.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("mount %s: %w", name, err)
		}
		c.Start(ctx)
		return c, nil
	}
	return d
}

const (
	Epochs        = "epochs"
	Blocks        = "blocks"
	Validators    = "validators"
	Deposits      = "deposits"
	BlockRequests = "block_requests"
	GoodPeers     = "good_peers"
)

// All returns the top-level datasets in tab order.
func All() []Dataset {
	epochs := define(Epochs, "Epochs", grid.Integers(0), true, DecodeEpoch, epochColumns)
	epochs.Drill = Blocks
	return []Dataset{
		epochs,
		define(Blocks, "Blocks", grid.Integers(1), true, DecodeBlock, blockColumns),
		define(Validators, "Validators", grid.Integers(0), true, DecodeValidator, validatorColumns),
		define(Deposits, "Deposits", grid.Integers(0), true, DecodeDeposit, depositColumns),
		define(BlockRequests, "Block requests", grid.Strings(), false, DecodeBlockRequest, blockRequestColumns),
		define(GoodPeers, "Good peers", grid.Strings(), false, DecodeGoodPeer, goodPeerColumns),
	}
}

// Lookup returns the top-level dataset called name.
func Lookup(name string) (Dataset, bool) {
	for _, d := range All() {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}

// EpochBlocks returns the blocks of a single epoch, paged and sorted locally.
func EpochBlocks(epoch uint64) Dataset {
	return define(Blocks, fmt.Sprintf("Epoch %d blocks", epoch), grid.Epoch(epoch), false, DecodeBlock, blockColumns)
}

func less[T any, K cmp.Ordered](key func(T) K) func(a, b T) bool {
	return func(a, b T) bool { return key(a) < key(b) }
}

func sortable[T any, K cmp.Ordered](id, header string, width int, key func(T) K, cell func(T) string) grid.Column[T] {
	return grid.Column[T]{ID: id, Header: header, Width: width, Sortable: true, Cell: cell, Less: less(key)}
}

func plain[T any](id, header string, width int, cell func(T) string) grid.Column[T] {
	return grid.Column[T]{ID: id, Header: header, Width: width, Cell: cell}
}

func itoa[T any](key func(T) int) func(T) string {
	return func(v T) string { return FormatCount(key(v)) }
}

var epochColumns = []grid.Column[EpochView]{
	sortable(grid.DefaultSort, "Epoch", 8,
		func(v EpochView) uint64 { return v.Epoch },
		func(v EpochView) string { return strconv.FormatUint(v.Epoch, 10) }),
	plain("timestamp", "Time (UTC)", 19, func(v EpochView) string { return FormatTime(v.Timestamp) }),
	sortable("attestationsCount", "Attestations", 12,
		func(v EpochView) int { return v.AttestationsCount }, itoa(func(v EpochView) int { return v.AttestationsCount })),
	sortable("depositsCount", "Deposits", 8,
		func(v EpochView) int { return v.DepositsCount }, itoa(func(v EpochView) int { return v.DepositsCount })),
	sortable("proposerSlashingsCount", "Slashings P", 11,
		func(v EpochView) int { return v.ProposerSlashingsCount }, itoa(func(v EpochView) int { return v.ProposerSlashingsCount })),
	sortable("attesterSlashingsCount", "Slashings A", 11,
		func(v EpochView) int { return v.AttesterSlashingsCount }, itoa(func(v EpochView) int { return v.AttesterSlashingsCount })),
	sortable("eligibleEther", "Eligible", 18,
		func(v EpochView) uint64 { return v.EligibleEther }, func(v EpochView) string { return FormatGwei(v.EligibleEther) }),
	sortable("votedEther", "Voted", 18,
		func(v EpochView) uint64 { return v.VotedEther }, func(v EpochView) string { return FormatGwei(v.VotedEther) }),
	sortable("globalParticipationRate", "Participation", 13,
		func(v EpochView) float64 { return v.GlobalParticipationRate },
		func(v EpochView) string { return FormatPercent(v.GlobalParticipationRate) }),
}

var blockColumns = []grid.Column[BlockView]{
	sortable(grid.DefaultSort, "Slot", 9,
		func(v BlockView) uint64 { return v.Slot },
		func(v BlockView) string { return strconv.FormatUint(v.Slot, 10) }),
	plain("epoch", "Epoch", 7, func(v BlockView) string { return strconv.FormatUint(v.Epoch, 10) }),
	plain("status", "Status", 9, func(v BlockView) string { return v.Status }),
	sortable("proposer", "Proposer", 9,
		func(v BlockView) uint64 { return v.Proposer },
		func(v BlockView) string { return strconv.FormatUint(v.Proposer, 10) }),
	sortable("attestationsCount", "Attestations", 12,
		func(v BlockView) int { return v.AttestationsCount }, itoa(func(v BlockView) int { return v.AttestationsCount })),
	sortable("depositsCount", "Deposits", 8,
		func(v BlockView) int { return v.DepositsCount }, itoa(func(v BlockView) int { return v.DepositsCount })),
	sortable("proposerSlashingsCount", "Slashings P", 11,
		func(v BlockView) int { return v.ProposerSlashingsCount }, itoa(func(v BlockView) int { return v.ProposerSlashingsCount })),
	sortable("attesterSlashingsCount", "Slashings A", 11,
		func(v BlockView) int { return v.AttesterSlashingsCount }, itoa(func(v BlockView) int { return v.AttesterSlashingsCount })),
	sortable("voluntaryExitsCount", "Exits", 6,
		func(v BlockView) int { return v.VoluntaryExitsCount }, itoa(func(v BlockView) int { return v.VoluntaryExitsCount })),
}

var validatorColumns = []grid.Column[ValidatorView]{
	sortable(grid.DefaultSort, "Index", 8,
		func(v ValidatorView) uint64 { return v.Index },
		func(v ValidatorView) string { return strconv.FormatUint(v.Index, 10) }),
	plain("pubkey", "Public key", 22, func(v ValidatorView) string { return ShortHex(v.PubkeyHex, 8) }),
	sortable("balance", "Balance", 16,
		func(v ValidatorView) uint64 { return v.Balance }, func(v ValidatorView) string { return FormatGwei(v.Balance) }),
	sortable("effectiveBalance", "Effective", 16,
		func(v ValidatorView) uint64 { return v.EffectiveBalance },
		func(v ValidatorView) string { return FormatGwei(v.EffectiveBalance) }),
	plain("status", "Status", 18, func(v ValidatorView) string { return v.Status }),
	sortable("activationEpoch", "Activation", 10,
		func(v ValidatorView) uint64 { return v.ActivationEpoch },
		func(v ValidatorView) string { return strconv.FormatUint(v.ActivationEpoch, 10) }),
	plain("exitEpoch", "Exit", 8, func(v ValidatorView) string { return FormatEpoch(v.ExitEpoch) }),
}

var depositColumns = []grid.Column[DepositView]{
	sortable(grid.DefaultSort, "Index", 8,
		func(v DepositView) uint64 { return v.Index },
		func(v DepositView) string { return strconv.FormatUint(v.Index, 10) }),
	sortable("slot", "Slot", 9,
		func(v DepositView) uint64 { return v.Slot },
		func(v DepositView) string { return strconv.FormatUint(v.Slot, 10) }),
	plain("publicKey", "Public key", 22, func(v DepositView) string { return ShortHex(v.PublicKey, 8) }),
	sortable("amount", "Amount", 16,
		func(v DepositView) uint64 { return v.Amount }, func(v DepositView) string { return FormatGwei(v.Amount) }),
	plain("signature", "Signature", 22, func(v DepositView) string { return ShortHex(v.Signature, 8) }),
}

var blockRequestColumns = []grid.Column[BlockRequestView]{
	sortable(grid.DefaultSort, "Root", 22,
		func(v BlockRequestView) string { return v.Root },
		func(v BlockRequestView) string { return ShortHex(v.Root, 8) }),
	sortable("failedCount", "Failed", 8,
		func(v BlockRequestView) uint64 { return v.FailedCount },
		func(v BlockRequestView) string { return FormatUint(v.FailedCount) }),
	sortable("notFoundCount", "Not found", 9,
		func(v BlockRequestView) uint64 { return v.NotFoundCount },
		func(v BlockRequestView) string { return FormatUint(v.NotFoundCount) }),
	plain("state", "State", 14, func(v BlockRequestView) string { return v.State }),
}

var goodPeerColumns = []grid.Column[GoodPeerView]{
	sortable(grid.DefaultSort, "Peer", 54,
		func(v GoodPeerView) string { return v.PeerID },
		func(v GoodPeerView) string { return v.PeerID }),
	sortable("address", "Address", 32,
		func(v GoodPeerView) string { return v.Address },
		func(v GoodPeerView) string { return v.Address }),
}
