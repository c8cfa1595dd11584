package features

import (
	"fmt"

	"churnlab/internal/dataset"
	apperrors "churnlab/internal/errors"
)

// ChannelSchemaVersion identifies the retained/excluded category lists
// below. Bump it whenever a list changes so stored matrices and models can
// be told apart.
const ChannelSchemaVersion = "channels-v1"

// RetainedChannels are the sales channels that get an indicator column
var RetainedChannels = []string{
	"MISSING",
	"ewpakwlliwisiwduibdlfmalxowmwpci",
	"foosdfpfkusacimwkcsosbicdxkicaua",
	"lmkebamcaaclubfxadlmueccxoimlema",
	"usilxuppasemubllopkaafesmlibmsdf",
}

// ExcludedChannels are rare sales channels dropped from the matrix.
// TODO: confirm the exclusion list with the product owner before the next
// schema version; it was chosen from category counts of a single extract.
var ExcludedChannels = []string{
	"sddiedcslfslkckwlfkdpoeeailfpeds",
	"epumfxlbckeskwekxbiuasklxalciiuu",
	"fixdbufsefwooaasfcxdxadsiekoceaa",
}

// RetainedOrigins are the electricity campaign codes that get an indicator column
var RetainedOrigins = []string{
	"MISSING",
	"kamkkxfxxuwbdslkwifmmcsiusiuosws",
	"ldkssxwpmemidmecebumciepifcamkci",
	"lxidpiddsbxsbosboudacockeimpuepw",
	"usapbepcfoloekilkwsdiboslwaxobdp",
}

// ColHasGas is the encoded gas flag column
const ColHasGas = dataset.ColHasGas

// EncodeGasFlag maps "t" to 1 and "f" to 0
func EncodeGasFlag(v string) (float64, error) {
	switch v {
	case "t":
		return 1, nil
	case "f":
		return 0, nil
	default:
		return 0, apperrors.NewInputFormatError(fmt.Sprintf("gas flag %q is not t or f", v), nil).
			WithColumn(dataset.ColHasGas)
	}
}

// OneHotEncoder maps a categorical value onto indicator columns for a fixed
// list of categories. Values outside the list encode as all zeros.
type OneHotEncoder struct {
	prefix     string
	categories []string
	index      map[string]int
}

// NewOneHotEncoder creates an encoder producing one <prefix>_<category>
// column per category, in the given order
func NewOneHotEncoder(prefix string, categories []string) *OneHotEncoder {
	index := make(map[string]int, len(categories))
	for i, c := range categories {
		index[c] = i
	}
	return &OneHotEncoder{
		prefix:     prefix,
		categories: append([]string(nil), categories...),
		index:      index,
	}
}

// NewChannelEncoder returns the sales channel encoder for ChannelSchemaVersion
func NewChannelEncoder() *OneHotEncoder {
	return NewOneHotEncoder("channel", RetainedChannels)
}

// NewOriginEncoder returns the origin_up encoder
func NewOriginEncoder() *OneHotEncoder {
	return NewOneHotEncoder(dataset.ColOriginUp, RetainedOrigins)
}

// Columns returns the indicator column names
func (e *OneHotEncoder) Columns() []string {
	cols := make([]string, len(e.categories))
	for i, c := range e.categories {
		cols[i] = e.prefix + "_" + c
	}
	return cols
}

// Encode returns the indicator vector for value
func (e *OneHotEncoder) Encode(value string) []float64 {
	out := make([]float64, len(e.categories))
	if i, ok := e.index[value]; ok {
		out[i] = 1
	}
	return out
}
