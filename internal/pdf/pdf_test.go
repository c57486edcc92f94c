package pdf

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"page_1_image_1.png", 1, false},
		{"page_12_image_3.jpg", 12, false},
		{"thumbnail.png", 0, true},
		{"page_x_image_1.png", 0, true},
	}
	for _, tt := range tests {
		got, err := pageFromFilename(tt.name)
		if tt.wantErr {
			require.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got)
	}
}

func TestArea(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 20))
	assert.Equal(t, 200, area(img))
}
