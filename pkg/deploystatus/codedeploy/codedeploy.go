// Package codedeploy implements deployment.Service on top of AWS CodeDeploy.
package codedeploy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/codedeploy"
	"github.com/aws/aws-sdk-go-v2/service/codedeploy/types"
	"github.com/aws/smithy-go"
	"github.com/nais/deploystatus/pkg/deploystatus/deployment"
)

// BatchGetDeployments accepts at most this many ids per call.
const MaxBatchSize = 25

// API is the subset of the CodeDeploy client used here.
type API interface {
	ListDeployments(ctx context.Context, params *codedeploy.ListDeploymentsInput, optFns ...func(*codedeploy.Options)) (*codedeploy.ListDeploymentsOutput, error)
	ListDeploymentGroups(ctx context.Context, params *codedeploy.ListDeploymentGroupsInput, optFns ...func(*codedeploy.Options)) (*codedeploy.ListDeploymentGroupsOutput, error)
	BatchGetDeployments(ctx context.Context, params *codedeploy.BatchGetDeploymentsInput, optFns ...func(*codedeploy.Options)) (*codedeploy.BatchGetDeploymentsOutput, error)
	GetDeployment(ctx context.Context, params *codedeploy.GetDeploymentInput, optFns ...func(*codedeploy.Options)) (*codedeploy.GetDeploymentOutput, error)
	ContinueDeployment(ctx context.Context, params *codedeploy.ContinueDeploymentInput, optFns ...func(*codedeploy.Options)) (*codedeploy.ContinueDeploymentOutput, error)
}

var _ API = &codedeploy.Client{}

type ClientOptions struct {
	Region string
	// Overrides the service endpoint, e.g. for LocalStack. Empty means the SDK default.
	EndpointURL string
	// Static credentials; nil means the default AWS credential chain.
	Credentials aws.CredentialsProvider
}

// NewClient creates a CodeDeploy client. The SDK retryer is disabled; failed calls are reported, not repeated.
func NewClient(ctx context.Context, opts ClientOptions) (*codedeploy.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithRetryer(func() aws.Retryer {
			return aws.NopRetryer{}
		}),
	}
	if opts.Credentials != nil {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(opts.Credentials))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	return codedeploy.NewFromConfig(cfg, func(o *codedeploy.Options) {
		if len(opts.EndpointURL) > 0 {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		}
	}), nil
}

// scope is one ListDeployments filter. CodeDeploy only accepts an application
// name together with a deployment group, so both are set or both are empty.
type scope struct {
	application     string
	deploymentGroup string
}

func (sc scope) input() *codedeploy.ListDeploymentsInput {
	input := &codedeploy.ListDeploymentsInput{}
	if len(sc.application) > 0 {
		input.ApplicationName = aws.String(sc.application)
		input.DeploymentGroupName = aws.String(sc.deploymentGroup)
	}
	return input
}

type Service struct {
	api             API
	application     string
	deploymentGroup string

	// Resolved on the first page of every listing; page tokens index into it.
	scopes []scope
}

var _ deployment.Service = &Service{}

// New returns a deployment service.
//
// With no application, every deployment in the account and region is listed.
// With an application but no group, each of the application's deployment groups is listed in turn.
func New(api API, application, deploymentGroup string) *Service {
	return &Service{
		api:             api,
		application:     application,
		deploymentGroup: deploymentGroup,
	}
}

func (s *Service) resolveScopes(ctx context.Context) ([]scope, error) {
	switch {
	case len(s.application) == 0:
		return []scope{{}}, nil
	case len(s.deploymentGroup) > 0:
		return []scope{{application: s.application, deploymentGroup: s.deploymentGroup}}, nil
	}

	scopes := make([]scope, 0)
	paginator := codedeploy.NewListDeploymentGroupsPaginator(s.api, &codedeploy.ListDeploymentGroupsInput{
		ApplicationName: aws.String(s.application),
	})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap("ListDeploymentGroups", err)
		}
		for _, group := range output.DeploymentGroups {
			scopes = append(scopes, scope{application: s.application, deploymentGroup: group})
		}
	}

	return scopes, nil
}

// Page tokens handed out by ListDeployments are "<scope index>/<CodeDeploy token>".
func formatToken(index int, token string) string {
	return fmt.Sprintf("%d/%s", index, token)
}

func parseToken(token string) (int, string, error) {
	if len(token) == 0 {
		return 0, "", nil
	}
	prefix, inner, ok := strings.Cut(token, "/")
	if !ok {
		return 0, "", fmt.Errorf("malformed page token '%s'", token)
	}
	index, err := strconv.Atoi(prefix)
	if err != nil || index < 0 {
		return 0, "", fmt.Errorf("malformed page token '%s'", token)
	}
	return index, inner, nil
}

func (s *Service) ListDeployments(ctx context.Context, nextToken string) (*deployment.Page, error) {
	index, token, err := parseToken(nextToken)
	if err != nil {
		return nil, err
	}

	if len(nextToken) == 0 || s.scopes == nil {
		s.scopes, err = s.resolveScopes(ctx)
		if err != nil {
			return nil, err
		}
	}

	if index >= len(s.scopes) {
		return &deployment.Page{}, nil
	}

	input := s.scopes[index].input()
	if len(token) > 0 {
		input.NextToken = aws.String(token)
	}

	output, err := s.api.ListDeployments(ctx, input)
	if err != nil {
		return nil, wrap("ListDeployments", err)
	}

	deployments, err := s.batchGet(ctx, output.Deployments)
	if err != nil {
		return nil, err
	}

	page := &deployment.Page{
		Deployments: deployments,
	}
	switch {
	case len(aws.ToString(output.NextToken)) > 0:
		page.NextToken = formatToken(index, aws.ToString(output.NextToken))
	case index+1 < len(s.scopes):
		page.NextToken = formatToken(index+1, "")
	}

	return page, nil
}

// batchGet resolves ids into deployments, keeping the order of ids.
// Ids unknown to the service are left out.
func (s *Service) batchGet(ctx context.Context, ids []string) ([]deployment.Deployment, error) {
	infos := make(map[string]types.DeploymentInfo, len(ids))

	for _, chunk := range chunks(ids, MaxBatchSize) {
		output, err := s.api.BatchGetDeployments(ctx, &codedeploy.BatchGetDeploymentsInput{
			DeploymentIds: chunk,
		})
		if err != nil {
			return nil, wrap("BatchGetDeployments", err)
		}
		for _, info := range output.DeploymentsInfo {
			infos[aws.ToString(info.DeploymentId)] = info
		}
	}

	deployments := make([]deployment.Deployment, 0, len(ids))
	for _, id := range ids {
		info, ok := infos[id]
		if !ok {
			continue
		}
		deployments = append(deployments, fromInfo(info))
	}

	return deployments, nil
}

func (s *Service) GetDeployment(ctx context.Context, id string) (*deployment.Deployment, error) {
	output, err := s.api.GetDeployment(ctx, &codedeploy.GetDeploymentInput{
		DeploymentId: aws.String(id),
	})
	if err != nil {
		return nil, wrap("GetDeployment", err)
	}
	if output.DeploymentInfo == nil {
		return nil, fmt.Errorf("GetDeployment: no deployment information returned for %s", id)
	}

	d := fromInfo(*output.DeploymentInfo)
	return &d, nil
}

// UpdateStatus completes a deployment that is waiting in Ready.
//
// CodeDeploy has no direct status setter. A deployment in Ready is waiting for
// the operator to continue it, and continuing with READY_WAIT makes the service
// finish the deployment, which is the only transition supported here.
func (s *Service) UpdateStatus(ctx context.Context, id string, target deployment.Status) error {
	if target != deployment.StatusSucceeded {
		return fmt.Errorf("transition of deployment %s to %s is not supported", id, target)
	}

	_, err := s.api.ContinueDeployment(ctx, &codedeploy.ContinueDeploymentInput{
		DeploymentId:       aws.String(id),
		DeploymentWaitType: types.DeploymentWaitTypeReadyWait,
	})
	if err != nil {
		return wrap("ContinueDeployment", err)
	}

	return nil
}

func fromInfo(info types.DeploymentInfo) deployment.Deployment {
	var created time.Time
	if info.CreateTime != nil {
		created = *info.CreateTime
	}
	return deployment.Deployment{
		ID:          aws.ToString(info.DeploymentId),
		Application: aws.ToString(info.ApplicationName),
		Group:       aws.ToString(info.DeploymentGroupName),
		Status:      deployment.Status(info.Status),
		CreateTime:  created,
	}
}

func chunks(ids []string, size int) [][]string {
	result := make([][]string, 0, (len(ids)+size-1)/size)
	for len(ids) > size {
		result = append(result, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		result = append(result, ids)
	}
	return result
}

// Error carries the failing CodeDeploy operation and, when the service answered, its error code.
type Error struct {
	Operation string
	Code      string
	Message   string
	Err       error
}

func (err *Error) Error() string {
	if len(err.Code) == 0 {
		return fmt.Sprintf("%s: %s", err.Operation, err.Err)
	}
	if len(err.Message) == 0 {
		return fmt.Sprintf("%s: %s", err.Operation, err.Code)
	}
	return fmt.Sprintf("%s: %s: %s", err.Operation, err.Code, err.Message)
}

func (err *Error) Unwrap() error {
	return err.Err
}

func wrap(operation string, err error) error {
	e := &Error{
		Operation: operation,
		Err:       err,
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		e.Code = apiErr.ErrorCode()
		e.Message = apiErr.ErrorMessage()
	}
	return e
}
