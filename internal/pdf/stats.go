package pdf

// DirectoryStats summarizes the PDF files found in a directory.
type DirectoryStats struct {
	TotalFiles       int
	TotalSize        int64
	AverageFileSize  int64
	LargestFileName  string
	LargestFileSize  int64
	SmallestFileName string
	SmallestFileSize int64
}

// SummarizeFiles computes size statistics over files.
func SummarizeFiles(files []FileInfo) DirectoryStats {
	var stats DirectoryStats
	for i, f := range files {
		stats.TotalFiles++
		stats.TotalSize += f.Size

		if f.Size > stats.LargestFileSize || i == 0 {
			stats.LargestFileSize = f.Size
			stats.LargestFileName = f.Name
		}
		if f.Size < stats.SmallestFileSize || i == 0 {
			stats.SmallestFileSize = f.Size
			stats.SmallestFileName = f.Name
		}
	}

	if stats.TotalFiles > 0 {
		stats.AverageFileSize = stats.TotalSize / int64(stats.TotalFiles)
	}
	return stats
}
