package records

// Models mirror the CBOR documents published by the indexer. Field keys
// follow the indexer's serialization (snake_case, deposits in camelCase).

type EpochModel struct {
	Epoch                   uint64  `cbor:"epoch"`
	Timestamp               uint64  `cbor:"timestamp"`
	BlocksCount             int     `cbor:"blocks_count"`
	ProposerSlashingsCount  int     `cbor:"proposer_slashings_count"`
	AttesterSlashingsCount  int     `cbor:"attester_slashings_count"`
	AttestationsCount       int     `cbor:"attestations_count"`
	DepositsCount           int     `cbor:"deposits_count"`
	VoluntaryExitsCount     int     `cbor:"voluntary_exits_count"`
	ValidatorsCount         int     `cbor:"validators_count"`
	AverageValidatorBalance uint64  `cbor:"average_validator_balance"`
	TotalValidatorBalance   uint64  `cbor:"total_validator_balance"`
	Finalized               bool    `cbor:"finalized"`
	EligibleEther           uint64  `cbor:"eligible_ether"`
	GlobalParticipationRate float64 `cbor:"global_participation_rate"`
	VotedEther              uint64  `cbor:"voted_ether"`
}

type BlockModel struct {
	Epoch                  uint64 `cbor:"epoch"`
	ProposerSlashingsCount int    `cbor:"proposer_slashings_count"`
	AttesterSlashingsCount int    `cbor:"attester_slashings_count"`
	AttestationsCount      int    `cbor:"attestations_count"`
	DepositsCount          int    `cbor:"deposits_count"`
	VoluntaryExitsCount    int    `cbor:"voluntary_exits_count"`
	Proposer               uint64 `cbor:"proposer"`
	Status                 string `cbor:"status"`
}

type ValidatorModel struct {
	Pubkey                     []byte  `cbor:"pubkey"`
	PubkeyHex                  string  `cbor:"pubkey_hex"`
	WithdrawableEpoch          *uint64 `cbor:"withdrawable_epoch"`
	WithdrawalCredentials      []byte  `cbor:"withdrawal_credentials"`
	Balance                    uint64  `cbor:"balance"`
	BalanceActivation          uint64  `cbor:"balance_activation"`
	EffectiveBalance           uint64  `cbor:"effective_balance"`
	Slashed                    bool    `cbor:"slashed"`
	ActivationEligibilityEpoch *uint64 `cbor:"activation_eligibility_epoch"`
	ActivationEpoch            uint64  `cbor:"activation_epoch"`
	ExitEpoch                  *uint64 `cbor:"exit_epoch"`
	Status                     string  `cbor:"status"`
}

type DepositModel struct {
	Slot                  uint64 `cbor:"slot"`
	PublicKey             string `cbor:"publicKey"`
	WithdrawalCredentials []byte `cbor:"withdrawalCredentials"`
	Amount                uint64 `cbor:"amount"`
	Signature             string `cbor:"signature"`
}

type BlockRequestModel struct {
	Root          []byte `cbor:"root"`
	FailedCount   uint64 `cbor:"failed_count"`
	NotFoundCount uint64 `cbor:"not_found_count"`
	State         string `cbor:"state"`
}

type GoodPeerModel struct {
	Address string `cbor:"address"`
}
