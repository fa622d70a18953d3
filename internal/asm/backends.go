package asm

// Backends register themselves with the sleigh registry.
import (
	_ "lifter/internal/sleigh/aarch64"
	_ "lifter/internal/sleigh/arm"
)
