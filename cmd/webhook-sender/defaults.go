package main

import "time"

const (
	defaultDelay   = time.Second
	defaultTimeout = 10 * time.Second
)
