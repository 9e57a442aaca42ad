package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/skyfleet/datavault/participant"
	"github.com/skyfleet/datavault/publish"
)

// Prints the resume point for an interrupted public download.
func main() {
	manifestPath := flag.String("manifest", "", "Path to the public manifest JSON")
	outputDir := flag.String("output-dir", "datasets", "Directory where files are being downloaded")
	flag.Parse()

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "Please specify -manifest PATH")
		os.Exit(2)
	}

	pm, err := publish.LoadPublic(*manifestPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load manifest: ", err)
		os.Exit(2)
	}

	total := len(pm.Files)
	resumePoint := participant.FindResumePoint(pm, *outputDir)
	if resumePoint >= total {
		fmt.Printf("All %d files are already downloaded!\n", total)
		return
	}

	fmt.Printf("Resume point: %d\n", resumePoint)
	fmt.Printf("Progress: %d/%d files already downloaded (%.1f%%)\n",
		resumePoint, total, float64(resumePoint)/float64(total)*100)
	fmt.Printf("Remaining: %d files\n", total-resumePoint)
	fmt.Println()
	fmt.Println("To resume, run public_download with:")
	fmt.Printf("  -manifest %s -output-dir %s -start-from %d\n", *manifestPath, *outputDir, resumePoint)
}
