package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/warden/pkg/resource"
)

// Compute reads and transitions EC2 instances.
type Compute struct {
	client EC2API
	region string
}

// NewCompute wraps an EC2 client.
func NewCompute(client EC2API, region string) *Compute {
	return &Compute{client: client, region: region}
}

// Region returns the region the client talks to.
func (c *Compute) Region() string {
	return c.region
}

// FindTagged returns every instance carrying at least one of the tag keys.
// found is false when the provider returned no reservations at all, which
// callers treat as "no candidates" rather than an empty candidate list.
func (c *Compute) FindTagged(ctx context.Context, keys []string) ([]resource.Instance, bool, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("tag-key"), Values: keys},
		},
	}

	var (
		instances []resource.Instance
		found     bool
	)
	for {
		output, err := c.client.DescribeInstances(ctx, input)
		if err != nil {
			return nil, false, wrapError("ec2", "DescribeInstances", "", err)
		}

		for _, reservation := range output.Reservations {
			found = true
			for _, instance := range reservation.Instances {
				instances = append(instances, convertInstance(instance))
			}
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return instances, found, nil
}

// StartInstance requests a start. The call returns before the transition completes.
func (c *Compute) StartInstance(ctx context.Context, id string) error {
	_, err := c.client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{id}})
	return wrapError("ec2", "StartInstances", id, err)
}

// StopInstance requests a stop. The call returns before the transition completes.
func (c *Compute) StopInstance(ctx context.Context, id string) error {
	_, err := c.client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{id}})
	return wrapError("ec2", "StopInstances", id, err)
}

func convertInstance(instance ec2types.Instance) resource.Instance {
	state := resource.StateUnknown
	if instance.State != nil {
		state = resource.ParseInstanceState(string(instance.State.Name))
	}

	tags := make([]resource.Tag, 0, len(instance.Tags))
	for _, tag := range instance.Tags {
		tags = append(tags, resource.Tag{Key: aws.ToString(tag.Key), Value: aws.ToString(tag.Value)})
	}

	return resource.Instance{
		ID:    aws.ToString(instance.InstanceId),
		State: state,
		Tags:  tags,
	}
}
