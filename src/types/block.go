package types

// Script identifies a lock or type script on the settlement layer.
type Script struct {
	CodeHash Hash
	HashType uint8
	Args     []byte
}

func (s *Script) Encode(w *Writer) {
	w.Hash(s.CodeHash)
	w.Uint8(s.HashType)
	w.VarBytes(s.Args)
}

func (s *Script) Decode(r *Reader) {
	s.CodeHash = r.Hash()
	s.HashType = r.Uint8()
	s.Args = r.VarBytes()
}

// Hash returns the digest of the encoded script.
func (s *Script) Hash() Hash {
	w := NewWriter(HashSize + 1 + 4 + len(s.Args))
	s.Encode(w)
	return Blake2b(w.Bytes())
}

// AccountMerkleState is the root and size of the account tree.
type AccountMerkleState struct {
	MerkleRoot Hash
	Count      uint32
}

func (a *AccountMerkleState) Encode(w *Writer) {
	w.Hash(a.MerkleRoot)
	w.Uint32(a.Count)
}

func (a *AccountMerkleState) Decode(r *Reader) {
	a.MerkleRoot = r.Hash()
	a.Count = r.Uint32()
}

// BlockMerkleState is the root and size of the block tree.
type BlockMerkleState struct {
	MerkleRoot Hash
	Count      uint64
}

func (b *BlockMerkleState) Encode(w *Writer) {
	w.Hash(b.MerkleRoot)
	w.Uint64(b.Count)
}

func (b *BlockMerkleState) Decode(r *Reader) {
	b.MerkleRoot = r.Hash()
	b.Count = r.Uint64()
}

// RawL2Block is the hashed part of a block.
type RawL2Block struct {
	Number                uint64
	BlockProducer         []byte
	ParentBlockHash       Hash
	StampedTimestamp      uint64
	PrevAccount           AccountMerkleState
	PostAccount           AccountMerkleState
	StateCheckpoints      []Hash
	TxWitnessRoot         Hash
	TxCount               uint32
	WithdrawalWitnessRoot Hash
	WithdrawalCount       uint32
}

func (b *RawL2Block) Encode(w *Writer) {
	w.Uint64(b.Number)
	w.VarBytes(b.BlockProducer)
	w.Hash(b.ParentBlockHash)
	w.Uint64(b.StampedTimestamp)
	b.PrevAccount.Encode(w)
	b.PostAccount.Encode(w)
	w.Uint32(uint32(len(b.StateCheckpoints)))
	for _, c := range b.StateCheckpoints {
		w.Hash(c)
	}
	w.Hash(b.TxWitnessRoot)
	w.Uint32(b.TxCount)
	w.Hash(b.WithdrawalWitnessRoot)
	w.Uint32(b.WithdrawalCount)
}

func (b *RawL2Block) Decode(r *Reader) {
	b.Number = r.Uint64()
	b.BlockProducer = r.VarBytes()
	b.ParentBlockHash = r.Hash()
	b.StampedTimestamp = r.Uint64()
	b.PrevAccount.Decode(r)
	b.PostAccount.Decode(r)
	n := r.VecLen()
	b.StateCheckpoints = nil
	for i := 0; i < n && r.Err() == nil; i++ {
		b.StateCheckpoints = append(b.StateCheckpoints, r.Hash())
	}
	b.TxWitnessRoot = r.Hash()
	b.TxCount = r.Uint32()
	b.WithdrawalWitnessRoot = r.Hash()
	b.WithdrawalCount = r.Uint32()
}

// RawWithdrawalRequest is the signed part of a withdrawal.
type RawWithdrawalRequest struct {
	Nonce             uint32
	ChainID           uint64
	Capacity          uint64
	Amount            uint64
	SUDTScriptHash    Hash
	AccountScriptHash Hash
	RegistryID        uint32
	OwnerLockHash     Hash
	Fee               uint64
}

// WithdrawalRequest moves assets from the rollup back to the settlement layer.
type WithdrawalRequest struct {
	Raw       RawWithdrawalRequest
	Signature []byte
}

func (wr *WithdrawalRequest) Encode(w *Writer) {
	w.Uint32(wr.Raw.Nonce)
	w.Uint64(wr.Raw.ChainID)
	w.Uint64(wr.Raw.Capacity)
	w.Uint64(wr.Raw.Amount)
	w.Hash(wr.Raw.SUDTScriptHash)
	w.Hash(wr.Raw.AccountScriptHash)
	w.Uint32(wr.Raw.RegistryID)
	w.Hash(wr.Raw.OwnerLockHash)
	w.Uint64(wr.Raw.Fee)
	w.VarBytes(wr.Signature)
}

func (wr *WithdrawalRequest) Decode(r *Reader) {
	wr.Raw.Nonce = r.Uint32()
	wr.Raw.ChainID = r.Uint64()
	wr.Raw.Capacity = r.Uint64()
	wr.Raw.Amount = r.Uint64()
	wr.Raw.SUDTScriptHash = r.Hash()
	wr.Raw.AccountScriptHash = r.Hash()
	wr.Raw.RegistryID = r.Uint32()
	wr.Raw.OwnerLockHash = r.Hash()
	wr.Raw.Fee = r.Uint64()
	wr.Signature = r.VarBytes()
}

// Hash returns the digest of the encoded request.
func (wr *WithdrawalRequest) Hash() Hash {
	w := NewWriter(256)
	wr.Encode(w)
	return Blake2b(w.Bytes())
}

// WithdrawalRequestExtra pairs a request with the owner lock it unlocks to.
type WithdrawalRequestExtra struct {
	Request   WithdrawalRequest
	OwnerLock Script
}

func (e *WithdrawalRequestExtra) Encode(w *Writer) {
	e.Request.Encode(w)
	e.OwnerLock.Encode(w)
}

func (e *WithdrawalRequestExtra) Decode(r *Reader) {
	e.Request.Decode(r)
	e.OwnerLock.Decode(r)
}

// OutPoint references a settlement-layer cell.
type OutPoint struct {
	TxHash Hash
	Index  uint32
}

// DepositRequest is a settlement-layer deposit into the rollup.
type DepositRequest struct {
	Capacity       uint64
	Amount         uint64
	SUDTScriptHash Hash
	Script         Script
	RegistryID     uint32
}

// DepositInfo is a deposit request together with the cell that carried it.
type DepositInfo struct {
	Request DepositRequest
	Cell    OutPoint
}

func (d *DepositInfo) Encode(w *Writer) {
	w.Uint64(d.Request.Capacity)
	w.Uint64(d.Request.Amount)
	w.Hash(d.Request.SUDTScriptHash)
	d.Request.Script.Encode(w)
	w.Uint32(d.Request.RegistryID)
	w.Hash(d.Cell.TxHash)
	w.Uint32(d.Cell.Index)
}

func (d *DepositInfo) Decode(r *Reader) {
	d.Request.Capacity = r.Uint64()
	d.Request.Amount = r.Uint64()
	d.Request.SUDTScriptHash = r.Hash()
	d.Request.Script.Decode(r)
	d.Request.RegistryID = r.Uint32()
	d.Cell.TxHash = r.Hash()
	d.Cell.Index = r.Uint32()
}

// L2Block is a full rollup block.
type L2Block struct {
	Raw          RawL2Block
	Transactions [][]byte
	Withdrawals  []WithdrawalRequest
}

// Number returns the block number.
func (b *L2Block) Number() uint64 {
	return b.Raw.Number
}

// Hash returns the digest of the encoded raw block.
func (b *L2Block) Hash() Hash {
	w := NewWriter(256)
	b.Raw.Encode(w)
	return Blake2b(w.Bytes())
}

// NumberHash returns a pointer to this block.
func (b *L2Block) NumberHash() NumberHash {
	return NumberHash{Number: b.Raw.Number, Hash: b.Hash()}
}

func (b *L2Block) Encode(w *Writer) {
	b.Raw.Encode(w)
	w.Uint32(uint32(len(b.Transactions)))
	for _, tx := range b.Transactions {
		w.VarBytes(tx)
	}
	w.Uint32(uint32(len(b.Withdrawals)))
	for i := range b.Withdrawals {
		b.Withdrawals[i].Encode(w)
	}
}

func (b *L2Block) Decode(r *Reader) {
	b.Raw.Decode(r)
	n := r.VecLen()
	b.Transactions = nil
	for i := 0; i < n && r.Err() == nil; i++ {
		b.Transactions = append(b.Transactions, r.VarBytes())
	}
	n = r.VecLen()
	b.Withdrawals = nil
	for i := 0; i < n && r.Err() == nil; i++ {
		var wr WithdrawalRequest
		wr.Decode(r)
		b.Withdrawals = append(b.Withdrawals, wr)
	}
}

// TxHash returns the digest identifying a raw L2 transaction.
func TxHash(tx []byte) Hash {
	return Blake2b(tx)
}
