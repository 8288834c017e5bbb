package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnswerSet_SortsAndCollapses(t *testing.T) {
	set := NewAnswerSet("b", "a", "b", "c")
	assert.Equal(t, AnswerSet{"a", "b", "c"}, set)

	empty := NewAnswerSet()
	assert.NotNil(t, empty)
	assert.Len(t, empty, 0)
}

func TestIsBlank(t *testing.T) {
	tests := []struct {
		name  string
		value AnswerValue
		want  bool
	}{
		{"nil", nil, true},
		{"empty string", AnswerString(""), true},
		{"whitespace", AnswerString("  \t"), true},
		{"text", AnswerString("ok"), false},
		{"empty set", NewAnswerSet(), true},
		{"set", NewAnswerSet("x"), false},
		{"zero int", AnswerInt(0), false},
		{"false", AnswerBool(false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBlank(tt.value))
		})
	}
}

func TestToAnswer(t *testing.T) {
	v, err := ToAnswer("yes")
	require.NoError(t, err)
	assert.Equal(t, AnswerString("yes"), v)

	v, err = ToAnswer(5)
	require.NoError(t, err)
	assert.Equal(t, AnswerInt(5), v)

	v, err = ToAnswer(true)
	require.NoError(t, err)
	assert.Equal(t, AnswerBool(true), v)

	v, err = ToAnswer([]any{"z", "a"})
	require.NoError(t, err)
	assert.Equal(t, AnswerSet{"a", "z"}, v)

	_, err = ToAnswer(2.5)
	assert.Error(t, err)

	_, err = ToAnswer(nil)
	assert.Error(t, err)

	_, err = ToAnswer([]any{"a", 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set[1]")
}

func TestUnmarshalAnswer(t *testing.T) {
	v, err := UnmarshalAnswer([]byte(`9007199254740993`))
	require.NoError(t, err)
	assert.Equal(t, AnswerInt(9007199254740993), v, "large ints keep precision")

	v, err = UnmarshalAnswer([]byte(`["b","a"]`))
	require.NoError(t, err)
	assert.Equal(t, AnswerSet{"a", "b"}, v)

	_, err = UnmarshalAnswer([]byte(`1.5`))
	assert.Error(t, err)

	_, err = UnmarshalAnswer([]byte(`null`))
	assert.Error(t, err)
}

func TestAnswers_JSONRoundTrip(t *testing.T) {
	in := Answers{
		"1": AnswerString("hello"),
		"2": AnswerInt(4),
		"3": NewAnswerSet("x", "y"),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Answers
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
