package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeFiles(t *testing.T) {
	stats := SummarizeFiles([]FileInfo{
		{Name: "a.pdf", Size: 300},
		{Name: "b.pdf", Size: 100},
		{Name: "c.pdf", Size: 500},
	})

	assert.Equal(t, DirectoryStats{
		TotalFiles:       3,
		TotalSize:        900,
		AverageFileSize:  300,
		LargestFileName:  "c.pdf",
		LargestFileSize:  500,
		SmallestFileName: "b.pdf",
		SmallestFileSize: 100,
	}, stats)
}

func TestSummarizeFiles_Empty(t *testing.T) {
	assert.Equal(t, DirectoryStats{}, SummarizeFiles(nil))
}
