package registry

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/certificate-registry/interfaces"
)

// Access policy predicates. They are pure and evaluated against the state at
// execution time; a check made by a client before submission is advisory only.

// CanIssue reports whether caller may create certificates.
func CanIssue(owner common.Address, authorized map[common.Address]bool, caller common.Address) bool {
	return caller == owner || authorized[caller]
}

// CanRevoke reports whether caller may revoke cert.
func CanRevoke(owner common.Address, caller common.Address, cert *interfaces.Certificate) bool {
	return caller == owner || caller == cert.Issuer
}

// CanManageIssuers reports whether caller may change the issuer set.
func CanManageIssuers(owner common.Address, caller common.Address) bool {
	return caller == owner
}
