// Command pipedemo drives a pipe with several producer and consumer
// goroutines so the blocking/end-of-stream behaviour can be watched end to
// end instead of only unit-tested in isolation. It is not part of the
// module's contract, just a runnable demonstration of it.
package main

import (
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/rharrison/pipe"
)

const recSize = 32

func main() {
	producers := flag.Int("producers", 3, "number of producer goroutines")
	consumers := flag.Int("consumers", 2, "number of consumer goroutines")
	perProducer := flag.Int("records", 20, "records pushed by each producer")
	flag.Parse()

	bi, err := pipe.New(recSize)
	if err != nil {
		fmt.Println("pipe.New:", err)
		return
	}

	var producerWG sync.WaitGroup
	for i := 0; i < *producers; i++ {
		p := bi.NewProducer()
		producerWG.Add(1)
		go runProducer(i, p, *perProducer, &producerWG)
	}

	var consumerWG sync.WaitGroup
	var total int64
	var totalMu sync.Mutex
	for i := 0; i < *consumers; i++ {
		c := bi.NewConsumer()
		consumerWG.Add(1)
		go runConsumer(i, c, &totalMu, &total, &consumerWG)
	}

	producerWG.Wait()
	bi.Free() // drop the bidirectional handle's own producer/consumer share
	consumerWG.Wait()

	fmt.Printf("consumers drained %d records total\n", total)
}

func runProducer(id int, p *pipe.Producer, n int, wg *sync.WaitGroup) {
	defer wg.Done()
	defer p.Free()
	rec := make([]byte, recSize)
	for i := 0; i < n; i++ {
		rec[0] = byte(id)
		rec[1] = byte(i)
		if err := p.Push(rec, 1); err != nil {
			fmt.Printf("producer %d: push failed: %v\n", id, err)
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func runConsumer(id int, c *pipe.Consumer, totalMu *sync.Mutex, total *int64, wg *sync.WaitGroup) {
	defer wg.Done()
	defer c.Free()
	dst := make([]byte, recSize)
	for {
		n, err := c.Pop(dst, 1)
		if err != nil {
			fmt.Printf("consumer %d: pop failed: %v\n", id, err)
			return
		}
		if n == 0 {
			return // producers exhausted
		}
		totalMu.Lock()
		*total++
		totalMu.Unlock()
	}
}
