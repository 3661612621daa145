package loadbalance

import (
	"fmt"
	"math/rand"

	"runner-rpc/registry"
)

// WeightedRandomBalancer picks instances with probability proportional to
// their registered weight. Instances with no weight count as weight 1, so a
// mixed set still resolves.
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(instances []registry.RunnerInstance) (*registry.RunnerInstance, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("no runner instances available")
	}

	totalWeight := 0
	for _, inst := range instances {
		totalWeight += effectiveWeight(inst)
	}

	r := rand.Intn(totalWeight)
	for i := range instances {
		r -= effectiveWeight(instances[i])
		if r < 0 {
			return &instances[i], nil
		}
	}

	return nil, fmt.Errorf("unexpected error in weighted random selection")
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}

func effectiveWeight(inst registry.RunnerInstance) int {
	if inst.Weight <= 0 {
		return 1
	}
	return inst.Weight
}
