package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    map[int]int
		wantErr error
	}{
		{
			name:    "canonical columns",
			payload: "id,label\n1,0\n2,1\n3,2\n",
			want:    map[int]int{1: 0, 2: 1, 3: 2},
		},
		{
			name:    "alias columns",
			payload: "id_message,target\n10,1\n11,2\n",
			want:    map[int]int{10: 1, 11: 2},
		},
		{
			name:    "type_comment alias and mixed case headers",
			payload: "Id_Comment,Type_Comment\n5,0\n",
			want:    map[int]int{5: 0},
		},
		{
			name:    "id beats id_comment when both present",
			payload: "id_comment,id,label\n100,1,2\n",
			want:    map[int]int{1: 2},
		},
		{
			name:    "bom on first header",
			payload: "\ufeffid,label\n7,1\n",
			want:    map[int]int{7: 1},
		},
		{
			name:    "float rendered integers",
			payload: "id,label\n1.0,2.0\n",
			want:    map[int]int{1: 2},
		},
		{
			name:    "rows with missing values are skipped",
			payload: "id,label\n1,0\n,1\n3,\nnope,2\n4,1\n",
			want:    map[int]int{1: 0, 4: 1},
		},
		{
			name:    "last value wins on duplicate ids",
			payload: "id,label\n1,0\n1,2\n",
			want:    map[int]int{1: 2},
		},
		{
			name:    "missing label column",
			payload: "id,comment\n1,nice\n",
			wantErr: ErrMalformedLabels,
		},
		{
			name:    "header only",
			payload: "id,label\n",
			wantErr: ErrMalformedLabels,
		},
		{
			name:    "empty file",
			payload: "",
			wantErr: ErrMalformedLabels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLabels([]byte(tt.payload))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLabelsCP1251Fallback(t *testing.T) {
	// "id,label,комментарий" encoded as cp1251; the Cyrillic column is not
	// valid UTF-8 so the decoder fallback has to kick in.
	header := append([]byte("id,label,"), 0xEA, 0xEE, 0xEC, 0xEC, 0xE5, 0xED, 0xF2, '\n')
	payload := append(header, []byte("1,2,x\n")...)

	got, err := ParseLabels(payload)

	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 2}, got)
}
