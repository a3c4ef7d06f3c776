package types

// LocalBlock is a block together with the auxiliary inputs needed to apply it
// locally: deposits, their asset scripts, withdrawals and the expected post
// global state.
type LocalBlock struct {
	Block               *L2Block
	Deposits            []DepositInfo
	DepositAssetScripts []Script
	Withdrawals         []WithdrawalRequestExtra
	PostGlobalState     GlobalState
}

func (l *LocalBlock) Encode(w *Writer) {
	l.Block.Encode(w)
	w.Uint32(uint32(len(l.Deposits)))
	for i := range l.Deposits {
		l.Deposits[i].Encode(w)
	}
	w.Uint32(uint32(len(l.DepositAssetScripts)))
	for i := range l.DepositAssetScripts {
		l.DepositAssetScripts[i].Encode(w)
	}
	w.Uint32(uint32(len(l.Withdrawals)))
	for i := range l.Withdrawals {
		l.Withdrawals[i].Encode(w)
	}
	l.PostGlobalState.Encode(w)
}

func (l *LocalBlock) Decode(r *Reader) {
	l.Block = new(L2Block)
	l.Block.Decode(r)

	n := r.VecLen()
	l.Deposits = nil
	for i := 0; i < n && r.Err() == nil; i++ {
		var d DepositInfo
		d.Decode(r)
		l.Deposits = append(l.Deposits, d)
	}
	n = r.VecLen()
	l.DepositAssetScripts = nil
	for i := 0; i < n && r.Err() == nil; i++ {
		var s Script
		s.Decode(r)
		l.DepositAssetScripts = append(l.DepositAssetScripts, s)
	}
	n = r.VecLen()
	l.Withdrawals = nil
	for i := 0; i < n && r.Err() == nil; i++ {
		var w WithdrawalRequestExtra
		w.Decode(r)
		l.Withdrawals = append(l.Withdrawals, w)
	}
	l.PostGlobalState.Decode(r)
}
