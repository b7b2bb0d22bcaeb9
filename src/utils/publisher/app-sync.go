package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/monitoring"
	"github.com/pactline/escrowd/src/utils/task"

	"github.com/cenkalti/backoff/v4"
	appsync "github.com/sony/appsync-client-go"
	"github.com/sony/appsync-client-go/graphql"
)

// Forwards messages to AppSync subscribers
type AppSyncPublisher[In json.Marshaler] struct {
	*task.Task

	monitor monitoring.Monitor

	client      *appsync.Client
	channelName string
	input       <-chan In
}

func NewAppSyncPublisher[In json.Marshaler](config *config.Config, name string) (self *AppSyncPublisher[In]) {
	self = new(AppSyncPublisher[In])

	self.Task = task.NewTask(config, name).
		WithSubtaskFunc(self.run).
		WithWorkerPool(config.AppSync.MaxWorkers, config.AppSync.MaxQueueSize)

	// Init AppSync client
	gqlClient := graphql.NewClient(config.AppSync.Url,
		graphql.WithAPIKey(config.AppSync.Token),
		graphql.WithTimeout(time.Second*30),
	)

	self.client = appsync.NewClient(appsync.NewGraphQLClient(gqlClient))

	return
}

func (self *AppSyncPublisher[In]) WithInputChannel(v <-chan In) *AppSyncPublisher[In] {
	self.input = v
	return self
}

func (self *AppSyncPublisher[In]) WithChannelName(v string) *AppSyncPublisher[In] {
	self.channelName = v
	return self
}

func (self *AppSyncPublisher[In]) WithMonitor(monitor monitoring.Monitor) *AppSyncPublisher[In] {
	self.monitor = monitor
	return self
}

func (self *AppSyncPublisher[In]) publish(data []byte) (err error) {
	mutation := `mutation Publish($data: AWSJSON!, $name: String!) {
	  publish(data: $data, name: $name) {
		data
		name
	  }
	}`

	variables := json.RawMessage(fmt.Sprintf(`{"name":"%s","data":%s}`, self.channelName, data))
	response, err := self.client.Post(graphql.PostRequest{
		Query:     mutation,
		Variables: &variables,
	})
	if err != nil {
		return err
	}
	body := new(string)

	err = response.DataAs(body)
	if err != nil {
		return err
	}

	self.Log.WithField("code", *response.StatusCode).WithField("body", body).Debug("AppSync response")
	return nil
}

func (self *AppSyncPublisher[In]) run() (err error) {
	for data := range self.input {
		data := data
		self.SubmitToWorker(func() {
			// Serialize to JSON
			jsonData, err := data.MarshalJSON()
			if err != nil {
				self.Log.WithError(err).Error("Failed to marshal to json")
				return
			}

			// Retry on failure with exponential backoff
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = self.Config.AppSync.BackoffMaxElapsedTime
			b.MaxInterval = self.Config.AppSync.BackoffMaxInterval

			err = backoff.Retry(func() error {
				err := self.publish(jsonData)
				if err != nil {
					self.monitor.GetReport().AppSync.Errors.Publish.Inc()
				}
				return err
			}, backoff.WithContext(b, self.Ctx))

			if err != nil {
				self.Log.WithError(err).Error("Failed to publish to appsync after retries")
				self.monitor.GetReport().AppSync.Errors.PersistentFailure.Inc()
				return
			}
			self.monitor.GetReport().AppSync.State.MessagesPublished.Inc()
		})
	}
	return nil
}
