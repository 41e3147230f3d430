package bytesize

import "fmt"

// Format renders a byte count with the largest fitting 1024-based unit.
//
// Examples:
//
//	Format(536870912)  // "512.00MB"
//	Format(1536)       // "1.50KB"
//	Format(42)         // "42B"
func Format(size int64) string {
	switch {
	case size >= 1<<40:
		return fmt.Sprintf("%.2fTB", float64(size)/(1<<40))
	case size >= 1<<30:
		return fmt.Sprintf("%.2fGB", float64(size)/(1<<30))
	case size >= 1<<20:
		return fmt.Sprintf("%.2fMB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2fKB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%dB", size)
	}
}
