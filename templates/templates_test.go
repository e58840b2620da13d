package templates

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTemplate(t *testing.T) {
	r := MustNewRegistry()

	tpl, err := r.Get("erc20-transfer")
	require.NoError(t, err)
	assert.Equal(t, ERC20, tpl.ContractType)
	assert.Equal(t, "transfer", tpl.DefaultFunction)
	require.Len(t, tpl.ParameterTemplates, 2)

	m, ok := tpl.Interface().Methods["transfer"]
	require.True(t, ok)
	assert.Equal(t, "transfer(address,uint256)", m.Sig)

	_, err = r.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTemplatesAreCopies(t *testing.T) {
	r := MustNewRegistry()

	tpl, _ := r.Get("erc20-transfer")
	tpl.ParameterTemplates[0].Name = "changed"

	again, _ := r.Get("erc20-transfer")
	assert.Equal(t, "to", again.ParameterTemplates[0].Name)
}

func TestInterfaceFor(t *testing.T) {
	r := MustNewRegistry()

	for _, ct := range []ContractType{ERC20, ERC721, ERC1155} {
		iface, err := r.InterfaceFor(ct)
		require.NoError(t, err, ct.String())
		assert.NotEmpty(t, iface.Methods)
	}

	_, err := r.InterfaceFor(Custom)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListTemplates(t *testing.T) {
	r := MustNewRegistry()

	all := r.List()
	assert.Len(t, all, 6)
	assert.Equal(t, "erc20-transfer", all[0].ID)

	erc1155 := r.List(ERC1155)
	require.Len(t, erc1155, 2)
	for _, tpl := range erc1155 {
		assert.Equal(t, ERC1155, tpl.ContractType)
	}

	assert.Len(t, r.List(ERC20, ERC721), 4)
	assert.Empty(t, r.List(Custom))
}

func TestParseContractType(t *testing.T) {
	cases := map[string]ContractType{
		"ERC20":   ERC20,
		"erc-721": ERC721,
		"erc1155": ERC1155,
		"custom":  Custom,
	}
	for in, want := range cases {
		got, err := ParseContractType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseContractType("erc777")
	assert.Error(t, err)
}
