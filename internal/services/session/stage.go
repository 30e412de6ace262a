package session

import (
	"github.com/ethereum/go-ethereum/common"

	"smartsession/internal/domain"
	"smartsession/internal/util/memzero"
)

// stage is how far the lifecycle has progressed. Its concrete type carries
// exactly the artifacts that progress produced.
type stage interface {
	isStage()
}

// noStage: nothing prepared yet.
type noStage struct{}

// preparedStage: the account is ready and a session key is provisioned.
type preparedStage struct {
	account common.Address
	key     domain.SessionKey
}

// grantedStage: a permission descriptor is held for the session key.
type grantedStage struct {
	preparedStage
	descriptor domain.PermissionDescriptor
}

func (noStage) isStage()       {}
func (preparedStage) isStage() {}
func (grantedStage) isStage()  {}

// prepared returns the prepare artifacts when st has them.
func prepared(st stage) (preparedStage, bool) {
	switch s := st.(type) {
	case preparedStage:
		return s, true
	case grantedStage:
		return s.preparedStage, true
	default:
		return preparedStage{}, false
	}
}

// wipe zeroes key material held by st.
func wipe(st stage) {
	if p, ok := prepared(st); ok {
		memzero.Zero(p.key.PrivateKey)
	}
}
