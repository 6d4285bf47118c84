package finance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

func TestMappingTableRequire(t *testing.T) {
	table := MappingTable{
		PORTFOLIO: {
			KEY_ID:            "id",
			KEY_NAME:          "name",
			KEY_INITIAL_VALUE: "invested",
			KEY_VALUE:         "value",
			KEY_ACCOUNTS:      "accounts",
		},
	}

	_, err := table.Require(PORTFOLIO)
	require.NoError(t, err)

	_, err = table.Require(PORTFOLIO, KEY_ACCOUNTS, KEY_FUNDS)
	var mappingErr *MappingConfigError
	require.ErrorAs(t, err, &mappingErr)
	require.Equal(t, KEY_FUNDS, mappingErr.Key)

	_, err = table.Require(CASH)
	require.ErrorAs(t, err, &mappingErr)
	require.Equal(t, CASH, mappingErr.ProductType)
	require.Equal(t, "", mappingErr.Key)
	require.Contains(t, err.Error(), "no field mapping")
}

func TestParseProductType(t *testing.T) {
	testCases := []struct {
		input    string
		expected ProductType
		fails    bool
	}{
		{input: "cash", expected: CASH},
		{input: " ETF ", expected: ETF},
		{input: "realestate", expected: REAL_ESTATE},
		{input: "real_estate", expected: REAL_ESTATE},
		{input: "portfolio", expected: PORTFOLIO},
		{input: "options", fails: true},
		{input: "", fails: true},
	}

	for _, test := range testCases {
		pt, err := ParseProductType(test.input)
		if test.fails {
			require.Error(t, err, test.input)
			continue
		}
		require.NoError(t, err, test.input)
		require.Equal(t, test.expected, pt)
	}
}

func TestMappingTableDecoding(t *testing.T) {
	var fromJson MappingTable
	err := json.Unmarshal([]byte(`{
		"cash": {"id": "iban", "name": "alias", "initial_value": "initial", "value": "balance"},
		"realestate": {"id": "ref", "name": "name", "initial_value": "cost", "value": "valuation"}
	}`), &fromJson)
	require.NoError(t, err)
	require.Equal(t, "iban", fromJson[CASH][KEY_ID])
	require.Equal(t, "valuation", fromJson[REAL_ESTATE][KEY_VALUE])

	var fromYaml MappingTable
	err = yaml.Unmarshal([]byte(`
cash:
  id: iban
  name: alias
  initial_value: initial
  value: balance
`), &fromYaml)
	require.NoError(t, err)
	require.Equal(t, fromJson[CASH], fromYaml[CASH])

	var fromJson5 MappingTable
	err = json5.Unmarshal([]byte(`{
		// unquoted keys, older spelling
		cash: {id: "iban", name: "alias", initial_value: "initial", value: "balance"},
		realestate: {id: "ref", name: "name", initial_value: "cost", value: "valuation",},
	}`), &fromJson5)
	require.NoError(t, err)
	require.Equal(t, fromJson, fromJson5)
	_, err = fromJson5.Require(REAL_ESTATE)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		input string
	}{
		{name: "unknown type", input: `{"bananas": {}}`},
		{name: "duplicate spelling", input: `{"real_estate": {}, "realestate": {}}`},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			var table MappingTable
			require.Error(t, json.Unmarshal([]byte(test.input), &table))
			require.Error(t, json5.Unmarshal([]byte(test.input), &table))
		})
	}
}
