package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTextCollapsesWhitespace(t *testing.T) {
	c := Content{Kind: KindText, Text: "hello   \r\n   world\t\tagain  "}
	got, err := Normalize(c)
	require.NoError(t, err)
	assert.Equal(t, "hello world again", string(got))
}

func TestNormalizeCodePreservesWhitespace(t *testing.T) {
	src := "func main() {\r\n\tfmt.Println(\"hi\")\r\n}\r\n"
	c := Content{Kind: KindCode, Language: "go", Source: src}
	got, err := Normalize(c)
	require.NoError(t, err)
	assert.Equal(t, "func main() {\n\tfmt.Println(\"hi\")\n}\n", string(got))
}

func TestEqualIgnoresInsignificantDifferences(t *testing.T) {
	a := Content{Kind: KindText, Text: "hello  world"}
	b := Content{Kind: KindText, Text: "hello world"}
	assert.True(t, Equal(a, b))

	c := Content{Kind: KindText, Text: "hello there"}
	assert.False(t, Equal(a, c))
}

func TestHashIsDeterministic(t *testing.T) {
	c := Content{Kind: KindTable, Columns: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}
	h1, err := HashHex(c)
	require.NoError(t, err)
	h2, err := HashHex(c)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestHashDiffersOnContentChange(t *testing.T) {
	a := Content{Kind: KindText, Text: "one"}
	b := Content{Kind: KindText, Text: "two"}
	ha, err := HashHex(a)
	require.NoError(t, err)
	hb, err := HashHex(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestNormalizeJsonCanonicalizesKeyOrder(t *testing.T) {
	a := Content{Kind: KindJson, Value: json.RawMessage(`{"b":1,"a":2}`)}
	b := Content{Kind: KindJson, Value: json.RawMessage(`{"a":2,"b":1}`)}
	assert.True(t, Equal(a, b))
}

func TestNormalizeUnknownKindErrors(t *testing.T) {
	_, err := Normalize(Content{Kind: Kind("bogus")})
	require.Error(t, err)
}

func TestEstimateGenericScalesWithLength(t *testing.T) {
	est := NewEstimator(nil)
	short, err := est.Estimate(Content{Kind: KindText, Text: "a"})
	require.NoError(t, err)
	long, err := est.Estimate(Content{Kind: KindText, Text: "a very long sentence with many distinct content words indeed"})
	require.NoError(t, err)
	assert.Greater(t, long.Generic, short.Generic)
}

func TestEstimateDoesNotStripStopwords(t *testing.T) {
	est := NewEstimator(nil)
	withStop, err := est.Estimate(Content{Kind: KindText, Text: "the cat and the dog"})
	require.NoError(t, err)
	withoutStop, err := est.Estimate(Content{Kind: KindText, Text: "cat dog"})
	require.NoError(t, err)
	assert.Equal(t, genericEstimate("the cat and the dog"), withStop.Generic)
	assert.Greater(t, withStop.Generic, withoutStop.Generic)
}

func TestEstimateSummaryTokensStripsStopwords(t *testing.T) {
	est := NewEstimator(nil)
	withStop := est.EstimateSummaryTokens("the cat and the dog")
	withoutStop := est.EstimateSummaryTokens("cat dog")
	assert.Equal(t, withoutStop, withStop)
}

func TestEstimateByModel(t *testing.T) {
	est := NewEstimator(map[string]func(string) int{
		"doubled": func(s string) int { return len(s) * 2 },
	})
	got, err := est.Estimate(Content{Kind: KindText, Text: "hi"})
	require.NoError(t, err)
	require.Contains(t, got.ByModel, "doubled")
	assert.Equal(t, len("hi")*2, got.ByModel["doubled"])
}

func TestEstimateBinaryAndCompositeAreZeroText(t *testing.T) {
	est := NewEstimator(nil)
	bin, err := est.Estimate(Content{Kind: KindBinary, Mime: "image/png", Bytes: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, 0, bin.Generic)

	comp, err := est.Estimate(Content{Kind: KindComposite})
	require.NoError(t, err)
	assert.Equal(t, 0, comp.Generic)
}
