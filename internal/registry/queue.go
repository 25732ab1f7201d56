package registry

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// HashedEntry is a live queue slot as seen by readers.
type HashedEntry struct {
	ID   uint64
	Hash common.Hash
}

// slot backs one id. Removal tombstones the slot; the id is never reused and
// the backing array never shrinks, so ids stay strictly increasing with no
// gaps per queue.
type slot struct {
	hash common.Hash
	live bool
}

// Queue is the registry-side state machine: two parallel hashed-request
// queues (verified and unverified), per-address counters, and the escrow
// account. All mutating operations serialize on one mutex; readers take the
// same lock and observe a consistent snapshot.
//
// The queue stores only content hashes. On the verified path the full
// Request is re-supplied at cancel/execute time and accepted iff it hashes
// to the stored entry; the unverified path additionally binds the
// prefix/suffix context.
type Queue struct {
	mu   sync.Mutex
	addr common.Address // escrow account inside env
	env  Env
	sink EventSink

	veri   []slot
	unveri []slot

	reqCount     map[common.Address]uint64
	execCount    map[common.Address]uint64
	referalCount map[common.Address]uint64
}

func NewQueue(addr common.Address, env Env, sink EventSink) *Queue {
	return &Queue{
		addr:         addr,
		env:          env,
		sink:         sink,
		reqCount:     make(map[common.Address]uint64),
		execCount:    make(map[common.Address]uint64),
		referalCount: make(map[common.Address]uint64),
	}
}

func (q *Queue) emit(ev Event) {
	if q.sink != nil {
		q.sink.Emit(ev)
	}
}

// NewReq escrows value and appends a verified-queue entry. value is the
// native amount attached by the sender and becomes the request's
// initEthSent; it must cover ethForCall.
func (q *Queue) NewReq(sender common.Address, value *big.Int, target, referer common.Address, callData []byte, ethForCall *big.Int, verifySender, payWithAUTO bool) (uint64, error) {
	if value == nil {
		value = big.NewInt(0)
	}
	if ethForCall == nil {
		ethForCall = big.NewInt(0)
	}
	if value.Cmp(ethForCall) < 0 {
		return 0, fmt.Errorf("%w: attached %s < ethForCall %s", ErrInsufficientFunds, value, ethForCall)
	}

	r := Request{
		Requester:    sender,
		Target:       target,
		Referer:      referer,
		CallData:     callData,
		InitEthSent:  new(big.Int).Set(value),
		EthForCall:   new(big.Int).Set(ethForCall),
		VerifySender: verifySender,
		PayWithAUTO:  payWithAUTO,
	}
	h, err := HashReq(r)
	if err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.env.Transfer(sender, q.addr, value); err != nil {
		return 0, fmt.Errorf("escrow: %w", err)
	}

	id := uint64(len(q.veri))
	q.veri = append(q.veri, slot{hash: h, live: true})
	q.reqCount[sender]++
	q.emit(HashedReqAdded{ID: id, Req: r})
	return id, nil
}

// NewHashedReqUnveri appends a bare commitment to the unverified queue. The
// full Request stays with the caller until execution or cancellation.
func (q *Queue) NewHashedReqUnveri(sender common.Address, hash common.Hash) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := uint64(len(q.unveri))
	q.unveri = append(q.unveri, slot{hash: hash, live: true})
	q.reqCount[sender]++
	q.emit(HashedReqUnveriAdded{ID: id, Hash: hash})
	return id, nil
}

// CancelHashedReq removes a verified entry and refunds the escrow. Only the
// requester may cancel, and the supplied Request must hash to the stored
// entry.
func (q *Queue) CancelHashedReq(id uint64, sender common.Address, r Request) error {
	h, err := HashReq(r)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	s, err := q.lookup(q.veri, id)
	if err != nil {
		return err
	}
	if s.hash != h {
		return ErrHashMismatch
	}
	if sender != r.Requester {
		return ErrNotRequester
	}

	q.veri[id].live = false
	if err := q.env.Transfer(q.addr, r.Requester, r.InitEthSent); err != nil {
		return fmt.Errorf("refund: %w", err)
	}
	q.emit(HashedReqRemoved{ID: id, WasExecuted: false})
	return nil
}

// CancelHashedReqUnveri removes an unverified entry. The revealed Request
// plus prefix/suffix must hash to the stored commitment.
func (q *Queue) CancelHashedReqUnveri(id uint64, sender common.Address, r Request, prefix, suffix []byte) error {
	if err := checkUnveriRequest(r); err != nil {
		return err
	}
	h, err := HashReqUnveri(r, prefix, suffix)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	s, err := q.lookup(q.unveri, id)
	if err != nil {
		return err
	}
	if s.hash != h {
		return ErrHashMismatch
	}
	if sender != r.Requester {
		return ErrNotRequester
	}

	q.unveri[id].live = false
	q.emit(HashedReqUnveriRemoved{ID: id, WasExecuted: false})
	return nil
}

// ExecuteHashedReq executes a verified entry: verifies the payload against
// the stored hash, consumes the entry, forwards ethForCall with the call
// data, and settles the executor's reimbursement plus fee. The entry is
// consumed even when the forwarded call reverts; in that case the full
// escrow goes back to the requester and the executor gets nothing.
func (q *Queue) ExecuteHashedReq(id uint64, executor common.Address, r Request) (uint64, error) {
	h, err := HashReq(r)
	if err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	s, err := q.lookup(q.veri, id)
	if err != nil {
		return 0, err
	}
	if s.hash != h {
		return 0, ErrHashMismatch
	}
	if r.VerifySender && !q.env.VerifyRequester(r.Requester) {
		return 0, ErrVerifyFailed
	}

	// Consume before the call so the forwarded call can never re-enter the
	// same entry.
	q.veri[id].live = false

	gasUsed, callErr := q.env.Call(q.addr, r.Target, r.EthForCall, r.CallData)
	if callErr != nil {
		_ = q.env.Transfer(q.addr, r.Requester, r.InitEthSent)
		q.emit(HashedReqRemoved{ID: id, WasExecuted: true})
		return gasUsed, fmt.Errorf("%w: %v", ErrCallReverted, callErr)
	}

	q.settle(r, executor, gasUsed)

	q.execCount[r.Requester]++
	if r.Referer != (common.Address{}) {
		q.referalCount[r.Referer]++
	}
	q.emit(HashedReqRemoved{ID: id, WasExecuted: true})
	return gasUsed, nil
}

// ExecuteHashedReqUnveri executes an unverified entry. The revealed Request
// carries no escrow and always pays in AUTO; the registry splices its
// computed fee into the call data (first argument slot) so the target can
// account for it downstream.
func (q *Queue) ExecuteHashedReqUnveri(id uint64, executor common.Address, r Request, prefix, suffix []byte) (uint64, error) {
	if err := checkUnveriRequest(r); err != nil {
		return 0, err
	}
	h, err := HashReqUnveri(r, prefix, suffix)
	if err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	s, err := q.lookup(q.unveri, id)
	if err != nil {
		return 0, err
	}
	if s.hash != h {
		return 0, ErrHashMismatch
	}
	if r.VerifySender && !q.env.VerifyRequester(r.Requester) {
		return 0, ErrVerifyFailed
	}

	q.unveri[id].live = false

	// The payout is known only after the call, but the fee slot must be
	// filled before it. Price the call with the overhead alone, then charge
	// the measured total afterwards; the slot carries the floor the target
	// must withhold.
	floor := ExecutorPayout(true, 0, q.env.GasPrice(), big.NewInt(0))
	callData := spliceFee(r.CallData, floor)

	gasUsed, callErr := q.env.Call(q.addr, r.Target, big.NewInt(0), callData)
	if callErr != nil {
		q.emit(HashedReqUnveriRemoved{ID: id, WasExecuted: true})
		return gasUsed, fmt.Errorf("%w: %v", ErrCallReverted, callErr)
	}

	payout := ExecutorPayout(true, gasUsed, q.env.GasPrice(), big.NewInt(0))
	q.payCapped(q.env.TransferAUTO, r.Requester, executor, payout, q.autoBalance(r.Requester))

	q.execCount[r.Requester]++
	if r.Referer != (common.Address{}) {
		q.referalCount[r.Referer]++
	}
	q.emit(HashedReqUnveriRemoved{ID: id, WasExecuted: true})
	return gasUsed, nil
}

// settle pays the executor and refunds the requester after a successful
// verified execution.
func (q *Queue) settle(r Request, executor common.Address, gasUsed uint64) {
	payout := ExecutorPayout(r.PayWithAUTO, gasUsed, q.env.GasPrice(), r.EthForCall)
	remainder := new(big.Int).Sub(r.InitEthSent, r.EthForCall)

	if r.PayWithAUTO {
		// Whole escrow remainder goes home; the executor is paid in AUTO.
		_ = q.env.Transfer(q.addr, r.Requester, remainder)
		q.payCapped(q.env.TransferAUTO, r.Requester, executor, payout, q.autoBalance(r.Requester))
		return
	}

	// ETH mode: draw from the escrow remainder first, then the requester's
	// balance. Shortfall beyond both is the executor's loss; keepers are
	// expected to simulate before executing.
	fromEscrow := min(remainder, payout)
	_ = q.env.Transfer(q.addr, executor, fromEscrow)

	shortfall := new(big.Int).Sub(payout, fromEscrow)
	if shortfall.Sign() > 0 {
		q.payCapped(q.env.Transfer, r.Requester, executor, shortfall, q.env.Balance(r.Requester))
	}

	leftover := new(big.Int).Sub(remainder, fromEscrow)
	if leftover.Sign() > 0 {
		_ = q.env.Transfer(q.addr, r.Requester, leftover)
	}
}

func (q *Queue) payCapped(transfer func(from, to common.Address, amount *big.Int) error, from, to common.Address, owed, available *big.Int) {
	amount := min(owed, available)
	if amount.Sign() > 0 {
		_ = transfer(from, to, amount)
	}
}

func (q *Queue) autoBalance(addr common.Address) *big.Int {
	type autoBalancer interface {
		BalanceAUTO(addr common.Address) *big.Int
	}
	if ab, ok := q.env.(autoBalancer); ok {
		return ab.BalanceAUTO(addr)
	}
	return maxUint120
}

// GetHashedReq returns the stored hash at id; the zero hash for a consumed
// slot, ErrNotFound for an id that was never issued.
func (q *Queue) GetHashedReq(id uint64) (common.Hash, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return readSlot(q.veri, id)
}

func (q *Queue) GetHashedReqUnveri(id uint64) (common.Hash, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return readSlot(q.unveri, id)
}

// CountVeri returns the number of live verified entries.
func (q *Queue) CountVeri() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return countLive(q.veri)
}

func (q *Queue) CountUnveri() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return countLive(q.unveri)
}

// LenVeri returns the raw id-space length of the verified queue, tombstones
// included.
func (q *Queue) LenVeri() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return uint64(len(q.veri))
}

func (q *Queue) LenUnveri() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return uint64(len(q.unveri))
}

// SliceVeri lists live verified entries with ids in [start, end). Bounds
// past the end clamp to empty; start > end is the caller's bug and fails.
func (q *Queue) SliceVeri(start, end uint64) ([]HashedEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return sliceLive(q.veri, start, end)
}

func (q *Queue) SliceUnveri(start, end uint64) ([]HashedEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return sliceLive(q.unveri, start, end)
}

func (q *Queue) ReqCountOf(addr common.Address) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.reqCount[addr]
}

func (q *Queue) ExecCountOf(addr common.Address) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.execCount[addr]
}

func (q *Queue) ReferalCountOf(addr common.Address) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.referalCount[addr]
}

func (q *Queue) lookup(arena []slot, id uint64) (slot, error) {
	if id >= uint64(len(arena)) || !arena[id].live {
		return slot{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return arena[id], nil
}

func readSlot(arena []slot, id uint64) (common.Hash, error) {
	if id >= uint64(len(arena)) {
		return common.Hash{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if !arena[id].live {
		return common.Hash{}, nil
	}
	return arena[id].hash, nil
}

func countLive(arena []slot) uint64 {
	var n uint64
	for _, s := range arena {
		if s.live {
			n++
		}
	}
	return n
}

func sliceLive(arena []slot, start, end uint64) ([]HashedEntry, error) {
	if start > end {
		return nil, fmt.Errorf("%w: start %d > end %d", ErrInvalidRange, start, end)
	}
	if start >= uint64(len(arena)) {
		return []HashedEntry{}, nil
	}
	if end > uint64(len(arena)) {
		end = uint64(len(arena))
	}
	out := []HashedEntry{}
	for id := start; id < end; id++ {
		if arena[id].live {
			out = append(out, HashedEntry{ID: id, Hash: arena[id].hash})
		}
	}
	return out, nil
}

// checkUnveriRequest rejects revealed unverified Requests that claim escrow:
// nothing was attached at commitment time, so there is nothing to forward or
// refund, and the fee must be payable in AUTO.
func checkUnveriRequest(r Request) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.InitEthSent.Sign() != 0 || r.EthForCall.Sign() != 0 {
		return ErrUnveriEscrow
	}
	if !r.PayWithAUTO {
		return ErrUnveriEscrow
	}
	return nil
}

// spliceFee overwrites the first 32-byte argument word (right after the
// 4-byte selector) with amount. Call data too short to carry the slot is
// forwarded untouched.
func spliceFee(callData []byte, amount *big.Int) []byte {
	if len(callData) < 36 {
		return callData
	}
	out := make([]byte, len(callData))
	copy(out, callData)
	word := make([]byte, 32)
	amount.FillBytes(word)
	copy(out[4:36], word)
	return out
}

func min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
