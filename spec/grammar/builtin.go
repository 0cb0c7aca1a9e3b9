package grammar

// JSONObject returns a grammar accepting a JSON object (RFC 8259) as the top-level value.
func JSONObject() *Grammar {
	return &Grammar{
		Name:  "json_object",
		Start: "object",
		Terminals: []*Terminal{
			{Name: "l_brace", Literal: "{"},
			{Name: "r_brace", Literal: "}"},
			{Name: "l_bracket", Literal: "["},
			{Name: "r_bracket", Literal: "]"},
			{Name: "comma", Literal: ","},
			{Name: "colon", Literal: ":"},
			{Name: "kw_true", Literal: "true"},
			{Name: "kw_false", Literal: "false"},
			{Name: "kw_null", Literal: "null"},
			{
				Name:    "string",
				Pattern: `"([^"\\\u{0000}-\u{001F}]|\\["\\/bfnrt]|\\u[0-9A-Fa-f][0-9A-Fa-f][0-9A-Fa-f][0-9A-Fa-f])*"`,
			},
			{
				Name:    "number",
				Pattern: `-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE](\+|-)?[0-9]+)?`,
			},
			{
				Name:    "white_space",
				Pattern: `[\u{0009}\u{000A}\u{000D}\u{0020}]+`,
				Skip:    true,
			},
		},
		Productions: []*Production{
			{
				LHS: "object",
				Alternatives: [][]string{
					{"l_brace", "r_brace"},
					{"l_brace", "members", "r_brace"},
				},
			},
			{
				LHS: "members",
				Alternatives: [][]string{
					{"pair"},
					{"members", "comma", "pair"},
				},
			},
			{
				LHS: "pair",
				Alternatives: [][]string{
					{"string", "colon", "value"},
				},
			},
			{
				LHS: "array",
				Alternatives: [][]string{
					{"l_bracket", "r_bracket"},
					{"l_bracket", "elements", "r_bracket"},
				},
			},
			{
				LHS: "elements",
				Alternatives: [][]string{
					{"value"},
					{"elements", "comma", "value"},
				},
			},
			{
				LHS: "value",
				Alternatives: [][]string{
					{"object"},
					{"array"},
					{"string"},
					{"number"},
					{"kw_true"},
					{"kw_false"},
					{"kw_null"},
				},
			},
		},
	}
}
