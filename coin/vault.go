package coin

import (
	"sync"

	"github.com/honeybft/honeybft/key"
	"github.com/honeybft/honeybft/tbls"
)

// Vault stores the cryptographic information to produce and validate coin
// shares. Vault is thread safe when using the methods.
type Vault struct {
	mu sync.RWMutex
	// current share of the node
	share *key.Share
	// public parameters to verify peer shares and combined signatures
	pub *key.DistPublic
}

// NewVault wraps the node's private share and the replicated public
// parameters.
func NewVault(pub *key.DistPublic, share *key.Share) *Vault {
	return &Vault{pub: pub, share: share}
}

// Public returns the distributed public parameters.
func (v *Vault) Public() *key.DistPublic {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pub
}

// Index returns the 1-based player id of the node's share.
func (v *Vault) Index() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.share.Index
}

// SignShare signs msg with the node's private share and returns the
// compressed share value.
func (v *Vault) SignShare(msg []byte) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	psig, err := tbls.Sign(v.share, msg)
	if err != nil {
		return nil, err
	}
	return psig.MarshalValue()
}

// VerifyShare checks a share value received from the given player.
func (v *Vault) VerifyShare(playerID int, value, msg []byte) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return tbls.VerifyPartial(v.pub, playerID, value, msg)
}

// Combine recovers the master signature from the given share values.
func (v *Vault) Combine(ids []int, values [][]byte) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return tbls.CombineValues(v.pub, ids, values)
}

// VerifySignature checks a combined signature over msg.
func (v *Vault) VerifySignature(msg, sig []byte) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return tbls.Verify(v.pub, msg, sig)
}
