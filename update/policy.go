package update

// maxCodecThreads caps the goroutines handed to one internally parallel codec.
const maxCodecThreads = 32

// SizeProfile summarizes the items that need compression.
type SizeProfile struct {
	Items      int
	TotalBytes uint64
	// Unit is the codec ConcurrencyUnit: input bytes one codec goroutine works on.
	Unit int64
}

// SplitPolicy divides a thread budget between file-level workers and the
// goroutines of each codec instance.
type SplitPolicy func(totalThreads int, profile SizeProfile) (fileThreads, codecThreads int)

// DefaultSplitPolicy gives each codec as many goroutines as the average item
// has concurrency units, between 1 and 32, and uses the rest for files.
func DefaultSplitPolicy(totalThreads int, profile SizeProfile) (fileThreads, codecThreads int) {
	codecThreads = 1
	if profile.Items > 0 && profile.Unit > 0 {
		avg := profile.TotalBytes / uint64(profile.Items)
		units := avg / uint64(profile.Unit)
		codecThreads = int(min(units, maxCodecThreads))
	}
	codecThreads = max(codecThreads, 1)

	return totalThreads / codecThreads, codecThreads
}
