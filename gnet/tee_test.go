package gnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeeDuplicatesAndClosesBothOutputs(t *testing.T) {
	in := make(chan int)
	out1, out2 := Tee(in)

	go func() {
		in <- 1
		in <- 2
		close(in)
	}()

	var got1, got2 []int
	for v := range out1 {
		got1 = append(got1, v)
		got2 = append(got2, <-out2)
	}

	assert.Equal(t, []int{1, 2}, got1)
	assert.Equal(t, []int{1, 2}, got2)

	_, ok := <-out2
	assert.False(t, ok, "out2 should be closed once in is drained")
}
