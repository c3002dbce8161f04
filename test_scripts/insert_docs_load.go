// Command insert_docs_load inserts random users through the line protocol
// and reports throughput.
//
//	go run test_scripts/insert_docs_load.go 10000 localhost:8888 8
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	humanize "github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/adfharrison1/go-nosql/pkg/client"
	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// generateRandomName generates a random 6-letter name
func generateRandomName(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	name := make([]byte, 6)
	for i := range name {
		name[i] = letters[rng.Intn(len(letters))]
	}
	// Capitalize first letter
	name[0] = name[0] - 32
	return string(name)
}

// newUser builds a random user document between 18 and 99 years old
func newUser(rng *rand.Rand) *domain.Document {
	name := generateRandomName(rng)
	data := domain.NewObject().
		Set("name", domain.String(name)).
		Set("age", domain.Int(int64(rng.Intn(82)+18))).
		Set("email", domain.String(strings.ToLower(name)+"@example.com"))
	return domain.NewDocument(data)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run test_scripts/insert_docs_load.go <number_of_users> [server_addr] [connections]")
		fmt.Println("Example: go run test_scripts/insert_docs_load.go 1000")
		fmt.Println("Example: go run test_scripts/insert_docs_load.go 1000 localhost:8888 8")
		os.Exit(1)
	}

	numUsers, err := strconv.Atoi(os.Args[1])
	if err != nil || numUsers <= 0 {
		fmt.Printf("Error: Invalid number of users '%s'. Please provide a positive integer.\n", os.Args[1])
		os.Exit(1)
	}
	addr := "localhost:8888"
	if len(os.Args) >= 3 {
		addr = os.Args[2]
	}
	connections := 4
	if len(os.Args) >= 4 {
		if connections, err = strconv.Atoi(os.Args[3]); err != nil || connections <= 0 {
			fmt.Printf("Error: Invalid number of connections '%s'.\n", os.Args[3])
			os.Exit(1)
		}
	}

	fmt.Printf("Starting load test: inserting %s users to %s over %d connections\n",
		humanize.Comma(int64(numUsers)), addr, connections)

	var next, successCount, errorCount int64
	reportInterval := int64(max(1, numUsers/10))
	startTime := time.Now()

	var g errgroup.Group
	for w := 0; w < connections; w++ {
		seed := time.Now().UnixNano() + int64(w)
		g.Go(func() error {
			c, err := client.Dial(addr)
			if err != nil {
				return err
			}
			defer c.Close()
			rng := rand.New(rand.NewSource(seed))

			for {
				i := atomic.AddInt64(&next, 1)
				if i > int64(numUsers) {
					return nil
				}
				resp, err := c.Insert("users", newUser(rng))
				switch {
				case err != nil:
					return err
				case !resp.Success:
					atomic.AddInt64(&errorCount, 1)
					fmt.Printf("Error inserting user %d: %s\n", i, resp.Message)
				default:
					atomic.AddInt64(&successCount, 1)
				}

				if i%reportInterval == 0 {
					elapsed := time.Since(startTime)
					fmt.Printf("Progress: %d/%d users (%.1f%%) - Rate: %.1f users/sec\n",
						i, numUsers, float64(i)/float64(numUsers)*100, float64(i)/elapsed.Seconds())
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Printf("Load test aborted: %v\n", err)
		os.Exit(1)
	}

	totalTime := time.Since(startTime)
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LOAD TEST COMPLETE")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total users attempted: %s\n", humanize.Comma(int64(numUsers)))
	fmt.Printf("Successful inserts:    %d\n", successCount)
	fmt.Printf("Failed inserts:        %d\n", errorCount)
	fmt.Printf("Success rate:          %.2f%%\n", float64(successCount)/float64(numUsers)*100)
	fmt.Printf("Total time:            %v\n", totalTime)
	fmt.Printf("Average rate:          %.2f users/sec\n", float64(numUsers)/totalTime.Seconds())
	fmt.Printf("Average time per user: %v\n", totalTime/time.Duration(numUsers))

	if errorCount > 0 {
		fmt.Printf("\nWarning: %d errors occurred during the load test\n", errorCount)
		os.Exit(1)
	}
	fmt.Println("\nLoad test completed successfully!")
}
