package stdlib

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/sha3"

	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

// RegisterCrypto installs the DOMAIN STACK's crypto library
// (bcrypt_hash/bcrypt_check/sha3_256), namespaced under "crypto" since
// it operates on plain strings rather than dispatching through
// load_methods, matching db/net's registration route.
func RegisterCrypto(vm *vmcore.VM) {
	vm.GetClasses().AddLibCFuncs("crypto", map[string]value.NativeFn{
		"bcrypt_hash": func(args []value.Value, _ any) (value.Value, error) {
			s, err := argString(args, 0, "bcrypt_hash")
			if err != nil {
				return value.Nil(), err
			}
			hash, herr := bcrypt.GenerateFromPassword(value.Bytes(s), bcrypt.DefaultCost)
			if herr != nil {
				return value.Nil(), fmt.Errorf("bcrypt_hash: %v", herr)
			}
			return value.NewString(string(hash)), nil
		},
		"bcrypt_check": func(args []value.Value, _ any) (value.Value, error) {
			s, err := argString(args, 0, "bcrypt_check")
			if err != nil {
				return value.Nil(), err
			}
			hash, err := argString(args, 1, "bcrypt_check")
			if err != nil {
				return value.Nil(), err
			}
			cerr := bcrypt.CompareHashAndPassword(value.Bytes(hash), value.Bytes(s))
			return value.Bool(cerr == nil), nil
		},
		"sha3_256": func(args []value.Value, _ any) (value.Value, error) {
			s, err := argString(args, 0, "sha3_256")
			if err != nil {
				return value.Nil(), err
			}
			sum := sha3.Sum256(value.Bytes(s))
			return value.NewString(hex.EncodeToString(sum[:])), nil
		},
	})
}
