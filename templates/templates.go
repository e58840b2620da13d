// Package templates is the static catalog of recovery templates and the
// contract interfaces they are bound to.
package templates

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var ErrNotFound = errors.New("template not found")

type ContractType int

const (
	ERC20 ContractType = iota
	ERC721
	ERC1155
	Custom
)

var contractTypeNames = [...]string{
	ERC20:   "ERC20",
	ERC721:  "ERC721",
	ERC1155: "ERC1155",
	Custom:  "CUSTOM",
}

func (c ContractType) String() string {
	if c < 0 || int(c) >= len(contractTypeNames) {
		return "UNKNOWN"
	}
	return contractTypeNames[c]
}

func (c ContractType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ContractType) UnmarshalText(text []byte) error {
	ct, err := ParseContractType(string(text))
	if err != nil {
		return err
	}
	*c = ct
	return nil
}

func ParseContractType(s string) (ContractType, error) {
	for i, n := range contractTypeNames {
		if strings.EqualFold(strings.ReplaceAll(s, "-", ""), n) {
			return ContractType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown contract type %q", s)
}

// ParameterTemplate describes one positional argument of the default function.
type ParameterTemplate struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
}

type RecoveryTemplate struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	ContractType       ContractType        `json:"contractType"`
	InterfaceJSON      string              `json:"abi"`
	DefaultFunction    string              `json:"defaultFunction"`
	ParameterTemplates []ParameterTemplate `json:"parameterTemplates"`

	iface abi.ABI
}

// Interface is the parsed contract interface the template encodes against.
func (t RecoveryTemplate) Interface() abi.ABI {
	return t.iface
}

// Registry holds the catalog. It is built once and only read afterwards.
type Registry struct {
	ordered    []RecoveryTemplate
	byID       map[string]int
	interfaces map[ContractType]abi.ABI
	rawIfaces  map[ContractType]string
}

// NewRegistry parses the built-in interfaces and templates. It only fails on
// a malformed built-in interface.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		byID:       make(map[string]int),
		interfaces: make(map[ContractType]abi.ABI),
		rawIfaces: map[ContractType]string{
			ERC20:   erc20ABI,
			ERC721:  erc721ABI,
			ERC1155: erc1155ABI,
		},
	}
	for ct, raw := range r.rawIfaces {
		parsed, err := abi.JSON(strings.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s interface: %w", ct, err)
		}
		r.interfaces[ct] = parsed
	}

	for _, t := range builtin {
		t.InterfaceJSON = r.rawIfaces[t.ContractType]
		t.iface = r.interfaces[t.ContractType]
		if _, ok := t.iface.Methods[t.DefaultFunction]; !ok {
			return nil, fmt.Errorf("template %s: default function %s not in %s interface", t.ID, t.DefaultFunction, t.ContractType)
		}
		r.byID[t.ID] = len(r.ordered)
		r.ordered = append(r.ordered, t)
	}
	return r, nil
}

// MustNewRegistry panics on error; the built-in catalog is static.
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(id string) (RecoveryTemplate, error) {
	i, ok := r.byID[id]
	if !ok {
		return RecoveryTemplate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(r.ordered[i]), nil
}

// InterfaceFor returns the standard interface of a contract type. CUSTOM has
// no standard interface.
func (r *Registry) InterfaceFor(ct ContractType) (abi.ABI, error) {
	iface, ok := r.interfaces[ct]
	if !ok {
		return abi.ABI{}, fmt.Errorf("%w: no interface for %s", ErrNotFound, ct)
	}
	return iface, nil
}

// InterfaceJSONFor is InterfaceFor in its JSON form.
func (r *Registry) InterfaceJSONFor(ct ContractType) (string, error) {
	raw, ok := r.rawIfaces[ct]
	if !ok {
		return "", fmt.Errorf("%w: no interface for %s", ErrNotFound, ct)
	}
	return raw, nil
}

// List returns the templates in catalog order, restricted to the given
// contract types when any are passed.
func (r *Registry) List(filter ...ContractType) []RecoveryTemplate {
	out := make([]RecoveryTemplate, 0, len(r.ordered))
	for _, t := range r.ordered {
		if len(filter) > 0 && !contains(filter, t.ContractType) {
			continue
		}
		out = append(out, clone(t))
	}
	return out
}

func contains(list []ContractType, ct ContractType) bool {
	for _, c := range list {
		if c == ct {
			return true
		}
	}
	return false
}

func clone(t RecoveryTemplate) RecoveryTemplate {
	t.ParameterTemplates = append([]ParameterTemplate(nil), t.ParameterTemplates...)
	return t
}
